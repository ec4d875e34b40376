package dialog_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

func TestValidateMove_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		source []int
		target []int
		pos    dialog.Position
		reason string
	}{
		{"speaker into speaker", []int{0, 1, 0}, []int{0, 0, 0}, dialog.Into, "cannot be a child of a speaker line"},
		{"onto itself", []int{0, 1}, []int{0, 1}, dialog.Into, "cannot drop on itself"},
		{"under own descendant", []int{0}, []int{0, 0, 0, 0}, dialog.Into, "circular reference"},
		{"dragging a link", []int{0, 0, 0, 0, 0}, []int{0, 1}, dialog.Into, "not its link"},
		{"into a link", []int{0, 1}, []int{0, 0, 0, 0, 0}, dialog.Into, "cannot drop into a link"},
		{"response at root", []int{0, 1}, []int{0}, dialog.Before, "conversation start"},
		{"beside own child", []int{0, 0}, []int{0, 0, 0, 0}, dialog.After, "circular reference"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := build(t, guardFile())
			before := dialog.Flatten(d)

			_, err := dialog.Move(d, edgeAt(t, d, c.source...), edgeAt(t, d, c.target...), c.pos)
			var mr *dialog.MoveRejected
			if !errors.As(err, &mr) {
				t.Fatalf("expected MoveRejected, got %v", err)
			}
			if !errors.Is(err, dialog.ErrMoveRejected) {
				t.Errorf("error should match ErrMoveRejected")
			}
			if !strings.Contains(mr.Reason, c.reason) {
				t.Errorf("reason = %q, want it to mention %q", mr.Reason, c.reason)
			}
			if !reflect.DeepEqual(before, dialog.Flatten(d)) {
				t.Errorf("rejected move changed the dialog")
			}
		})
	}
}

func TestMove_ReorderWithinParent(t *testing.T) {
	for _, pos := range []dialog.Position{dialog.Before, dialog.After} {
		t.Run(pos.String(), func(t *testing.T) {
			d := build(t, guardFile())
			e0, _ := d.NodeAt(slot(dialog.SpeakerLine, 0))
			r0, r1 := e0.Edges[0], e0.Edges[1]

			src, tgt := r1, r0
			if pos == dialog.After {
				src, tgt = r0, r1
			}
			res, err := dialog.Move(d, src, tgt, pos)
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			want := 0
			if pos == dialog.After {
				want = 1
			}
			if res.Parent != e0 || res.Index != want {
				t.Errorf("result = %+v, want index %d under E0", res, want)
			}
			if e0.Edges[0] != r1 || e0.Edges[1] != r0 {
				t.Errorf("edges not swapped")
			}
			assertValid(t, d)
		})
	}
}

func TestMove_SpeakerToRoot(t *testing.T) {
	d := build(t, guardFile())
	src := edgeAt(t, d, 0, 1, 0) // R1 -> E2
	r1 := src.Owner()

	res, err := dialog.Move(d, src, d.Roots()[0], dialog.After)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.AtRoot() || res.Index != 1 {
		t.Errorf("result = %+v, want root index 1", res)
	}
	if len(d.Roots()) != 2 || !d.Roots()[1].IsRoot || d.Roots()[1].Owner() != nil {
		t.Errorf("E2 was not added as a start")
	}
	if len(r1.Edges) != 0 {
		t.Errorf("R1 still owns %d edges", len(r1.Edges))
	}
	e2, _ := d.NodeAt(slot(dialog.SpeakerLine, 2))
	if d.Links().Count(e2) != 1 {
		t.Errorf("registry lost the moved edge")
	}
	assertValid(t, d)
}

func TestMove_IntoOtherKind(t *testing.T) {
	d := build(t, guardFile())
	src := edgeAt(t, d, 0, 1, 0)    // R1 -> E2
	tgt := edgeAt(t, d, 0, 0, 0, 0) // E1 -> R2

	res, err := dialog.Move(d, src, tgt, dialog.Into)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Parent != tgt.Target || res.Index != 1 {
		t.Errorf("result = %+v", res)
	}
	if src.Owner() != tgt.Target {
		t.Errorf("edge owner not updated")
	}
	assertValid(t, d)
}

func TestParsePosition(t *testing.T) {
	for _, s := range []string{"before", "After", "INTO"} {
		p, err := dialog.ParsePosition(s)
		if err != nil {
			t.Fatalf("ParsePosition(%q): %v", s, err)
		}
		if !strings.EqualFold(p.String(), s) {
			t.Errorf("ParsePosition(%q) = %s", s, p)
		}
	}
	if _, err := dialog.ParsePosition("over"); err == nil {
		t.Errorf("expected error for unknown position")
	}
}
