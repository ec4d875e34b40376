package api

import (
	"fmt"
	"path/filepath"
	"strings"
)

// dialogRoot confines file paths taken from request bodies. Relative paths
// resolve against dir; absolute paths must already lie under it.
type dialogRoot struct {
	dir string
}

func newDialogRoot(dir string) (dialogRoot, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dialogRoot{}, fmt.Errorf("dialog root %s: %w", dir, err)
	}
	return dialogRoot{dir: abs}, nil
}

// resolve returns the cleaned absolute form of p, or an error when p
// escapes the root. Symlinks inside the root are not followed.
func (d dialogRoot) resolve(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(d.dir, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(d.dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the dialog root", p)
	}
	return p, nil
}

func (d dialogRoot) resolveAll(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := d.resolve(p)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
