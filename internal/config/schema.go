package config

// Config is the top-level YAML structure.
type Config struct {
	Version string     `yaml:"version"`
	Server  ServerConf `yaml:"server"`
	Editor  EditorConf `yaml:"editor"`
	Trash   TrashConf  `yaml:"trash"`
	TLK     TLKConf    `yaml:"tlk"`
}

// ServerConf holds HTTP listener settings.
type ServerConf struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	DialogRoot     string `yaml:"dialog_root"` // HTTP file paths resolve under it
}

// EditorConf holds tunables applied to every editing session.
type EditorConf struct {
	Language        int  `yaml:"language"`         // language id used for display text
	UndoDepth       int  `yaml:"undo_depth"`       // snapshots kept per stack
	CloneMaxDepth   int  `yaml:"clone_max_depth"`  // recursion bound for clone/paste
	AutoRepair      bool `yaml:"auto_repair"`      // repair once before refusing a save (default true)
	ValidateWorkers int  `yaml:"validate_workers"` // batch validation goroutines
	ValidateQueue   int  `yaml:"validate_queue"`   // batch validation queue depth
}

// TrashConf selects the trash store.
type TrashConf struct {
	Driver string `yaml:"driver"` // sqlite | memory
	Path   string `yaml:"path"`
}

// TLKConf locates the string table. An empty Path with InMemory false
// disables string-table lookups.
type TLKConf struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}
