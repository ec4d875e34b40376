package dialog

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity is the Kind of every IntegrityError.
	ErrIntegrity = errors.New("dialog integrity violation")
	// ErrCloneDepthExceeded stops a clone whose recursion passed the depth bound.
	ErrCloneDepthExceeded = errors.New("clone depth exceeded")
	// ErrMoveRejected is the Kind of every MoveRejected.
	ErrMoveRejected = errors.New("move rejected")
	// ErrRestoreRejected is the Kind of every RestoreRejected.
	ErrRestoreRejected = errors.New("restore rejected")
	// ErrNotFound is returned for slots or paths that do not resolve.
	ErrNotFound = errors.New("not found")
)

// Violation classifies an IntegrityError.
type Violation string

const (
	DanglingIndex Violation = "dangling_index"
	StaleCache    Violation = "stale_cache"
	Alternation   Violation = "alternation"
	RootKind      Violation = "root_kind"
	InboundEdges  Violation = "inbound_edges"
)

// IntegrityError describes one broken invariant. Owner is nil for root edges
// and for errors not tied to an edge.
type IntegrityError struct {
	Violation Violation
	Owner     *Slot
	Edge      int
	Msg       string
}

func (e *IntegrityError) Error() string {
	if e == nil {
		return ""
	}
	where := "roots"
	if e.Owner != nil {
		where = e.Owner.String()
	}
	return fmt.Sprintf("%s: %s at %s[%d]: %s", ErrIntegrity, e.Violation, where, e.Edge, e.Msg)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

func integrityf(v Violation, owner *Node, edge int, format string, args ...any) *IntegrityError {
	ie := &IntegrityError{Violation: v, Edge: edge, Msg: fmt.Sprintf(format, args...)}
	if owner != nil {
		s := Slot{Kind: owner.Kind, Index: owner.pos}
		ie.Owner = &s
	}
	return ie
}

// MoveRejected is an expected refusal carrying a human-readable reason.
type MoveRejected struct {
	Reason string
}

func (e *MoveRejected) Error() string { return fmt.Sprintf("%s: %s", ErrMoveRejected, e.Reason) }

func (e *MoveRejected) Unwrap() error { return ErrMoveRejected }

func rejectMove(reason string) error { return &MoveRejected{Reason: reason} }

// RestoreRejected means a node cannot be placed at the requested location.
type RestoreRejected struct {
	Reason string
}

func (e *RestoreRejected) Error() string { return fmt.Sprintf("%s: %s", ErrRestoreRejected, e.Reason) }

func (e *RestoreRejected) Unwrap() error { return ErrRestoreRejected }

// Join folds a violation list into one error, nil when empty.
func Join(errs []*IntegrityError) error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}
