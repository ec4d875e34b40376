package event

import "time"

// Op names an edit operation.
type Op string

const (
	OpAddNode   Op = "add_node"
	OpAddRoot   Op = "add_root"
	OpDelete    Op = "delete"
	OpMove      Op = "move"
	OpCopy      Op = "copy"
	OpCut       Op = "cut"
	OpPaste     Op = "paste"
	OpPasteLink Op = "paste_link"
	OpRestore   Op = "restore"
	OpSetText   Op = "set_text"
	OpUndo      Op = "undo"
	OpRedo      Op = "redo"
	OpRepair    Op = "repair"
	OpSave      Op = "save"
)

// Change is published after every committed mutation of a dialog.
type Change struct {
	ID         string            `json:"id"`
	DialogID   string            `json:"dialog_id"`
	Op         Op                `json:"op"`
	Label      string            `json:"label"`
	OccurredAt time.Time         `json:"occurred_at"`
	Meta       map[string]string `json:"meta,omitempty"` // slot, file path, etc.
}

// Listener receives changes synchronously on the editing goroutine.
type Listener func(Change)
