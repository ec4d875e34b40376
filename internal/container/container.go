// Package container holds the flat, index-addressed form of a dialog file.
//
// A File has no notion of object identity: every edge names its target by
// list position only. Entries are speaker lines, Replies are response lines,
// and Starts are the root edges (always into Entries). Edges owned by an
// entry point into Replies and vice versa.
package container

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// File is the top-level container.
type File struct {
	EndConversation string       `json:"end_conversation,omitempty"`
	EndConverAbort  string       `json:"end_conver_abort,omitempty"`
	PreventZoom     bool         `json:"prevent_zoom,omitempty"`
	Entries         []NodeRecord `json:"entries"`
	Replies         []NodeRecord `json:"replies"`
	Starts          []EdgeRecord `json:"starts"`
}

// NodeRecord is one entry or reply.
type NodeRecord struct {
	Text         LocRecord    `json:"text"`
	Speaker      string       `json:"speaker,omitempty"`
	Comment      string       `json:"comment,omitempty"`
	Sound        string       `json:"sound,omitempty"`
	Quest        string       `json:"quest,omitempty"`
	QuestEntry   uint32       `json:"quest_entry,omitempty"`
	Delay        uint32       `json:"delay,omitempty"`
	Action       string       `json:"action,omitempty"`
	ActionParams []Param      `json:"action_params,omitempty"`
	Edges        []EdgeRecord `json:"edges,omitempty"`
}

// EdgeRecord is a pointer by position into the opposite list.
type EdgeRecord struct {
	Index           int     `json:"index"`
	Condition       string  `json:"condition,omitempty"`
	ConditionParams []Param `json:"condition_params,omitempty"`
	IsLink          bool    `json:"is_link,omitempty"`
	LinkComment     string  `json:"link_comment,omitempty"`
}

// LocRecord is a localized string: per-language text plus an optional
// string-table reference (-1 when absent).
type LocRecord struct {
	StrRef  int64        `json:"strref"`
	Strings []LangString `json:"strings,omitempty"`
}

// LangString is one language's text.
type LangString struct {
	Language int    `json:"language"`
	Text     string `json:"text"`
}

// Param is a key/value script parameter. Order is significant.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Decode reads a File from r.
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode dialog container: %w", err)
	}
	return &f, nil
}

// Encode writes f to w.
func Encode(w io.Writer, f *File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode dialog container: %w", err)
	}
	return nil
}

// ReadFile decodes the container stored at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteFile encodes f to a sibling temp file and renames it over path.
func WriteFile(path string, f *File) error {
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := Encode(fh, f); err != nil {
		fh.Close()
		os.Remove(tmp)
		return err
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
