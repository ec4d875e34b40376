package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Ranges of the editor tunables
//   - A usable trash driver
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Server.ReadTimeoutMs < 0 || cfg.Server.WriteTimeoutMs < 0 {
		errs = append(errs, "server: timeouts must not be negative")
	}
	if cfg.Editor.Language < 0 {
		errs = append(errs, fmt.Sprintf("editor.language: %d is not a language id", cfg.Editor.Language))
	}
	if cfg.Editor.UndoDepth < 1 {
		errs = append(errs, fmt.Sprintf("editor.undo_depth: must be at least 1, got %d", cfg.Editor.UndoDepth))
	}
	if cfg.Editor.CloneMaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("editor.clone_max_depth: must be at least 1, got %d", cfg.Editor.CloneMaxDepth))
	}
	if cfg.Editor.ValidateWorkers < 1 {
		errs = append(errs, fmt.Sprintf("editor.validate_workers: must be at least 1, got %d", cfg.Editor.ValidateWorkers))
	}
	if cfg.Editor.ValidateQueue < 1 {
		errs = append(errs, fmt.Sprintf("editor.validate_queue: must be at least 1, got %d", cfg.Editor.ValidateQueue))
	}

	switch cfg.Trash.Driver {
	case "memory":
	case "sqlite":
		if cfg.Trash.Path == "" {
			errs = append(errs, "trash.path: required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("trash.driver: unknown driver %q (want sqlite or memory)", cfg.Trash.Driver))
	}
	if cfg.TLK.InMemory && cfg.TLK.Path != "" {
		errs = append(errs, "tlk: path and in_memory are mutually exclusive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
