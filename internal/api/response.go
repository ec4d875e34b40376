package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/editor"
	"github.com/gyaneshwarpardhi/dlgedit/internal/workspace"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEditError maps engine errors onto status codes. Refused edits are
// 422; the dialog is unchanged in that case.
func writeEditError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var ie *dialog.IntegrityError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workspace.ErrUnknownDialog), errors.Is(err, dialog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, editor.ErrSaveAborted):
		status = http.StatusUnprocessableEntity
		resp.Error = editor.ErrSaveAborted.Error()
		resp.Violations = violations(err)
	case errors.Is(err, dialog.ErrMoveRejected),
		errors.Is(err, dialog.ErrRestoreRejected),
		errors.Is(err, dialog.ErrCloneDepthExceeded),
		errors.As(err, &ie):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrClipboardEmpty):
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

// violations flattens the joined IntegrityErrors wrapped in err.
func violations(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if ie, ok := e.(*dialog.IntegrityError); ok {
			out = append(out, ie.Error())
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, x := range u.Unwrap() {
				walk(x)
			}
		case interface{ Unwrap() error }:
			if x := u.Unwrap(); x != nil {
				walk(x)
			}
		}
	}
	walk(err)
	return out
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %s", err)
	}
	return nil
}

func parsePath(s string) (dialog.Path, error) {
	p, err := dialog.ParsePath(s)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %s", s, err)
	}
	return p, nil
}
