package dialog_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

func TestCloneSubtree_StubsBackReference(t *testing.T) {
	d := build(t, loopFile())

	s, err := dialog.CloneSubtree(d, slot(dialog.SpeakerLine, 0))
	if err != nil {
		t.Fatalf("CloneSubtree: %v", err)
	}
	assertValid(t, d)

	root, _ := d.NodeAt(s)
	if root.CycleStub || textOf(root) != "Hello" {
		t.Fatalf("clone root = %+v", root)
	}
	if len(root.Edges) != 1 {
		t.Fatalf("clone root edges = %d, want 1", len(root.Edges))
	}
	r := root.Edges[0].Target
	if r == nil || textOf(r) != "Hi" || len(r.Edges) != 1 {
		t.Fatalf("cloned response = %+v", r)
	}
	back := r.Edges[0]
	if back.IsLink {
		t.Errorf("back-reference should be a strong edge to a stub")
	}
	if !back.Target.CycleStub || len(back.Target.Edges) != 0 {
		t.Errorf("back-reference target should be a childless stub")
	}
	orig, _ := d.NodeAt(slot(dialog.SpeakerLine, 0))
	if back.Target == orig || r == orig.Edges[0].Target {
		t.Errorf("clone shares nodes with the original")
	}
	if got := len(d.Nodes(dialog.SpeakerLine)); got != 3 {
		t.Errorf("speakers = %d, want 3 (original, copy, stub)", got)
	}
}

func TestCloneSubtree_LinkOutsideKeepsTarget(t *testing.T) {
	d := build(t, sharedFile())
	// E2 owns a link to R3, which is outside E2's subtree.
	s, err := dialog.CloneSubtree(d, slot(dialog.SpeakerLine, 2))
	if err != nil {
		t.Fatalf("CloneSubtree: %v", err)
	}
	cp, _ := d.NodeAt(s)
	r3, _ := d.NodeAt(slot(dialog.ResponseLine, 3))
	if len(cp.Edges) != 2 || !cp.Edges[1].IsLink || cp.Edges[1].Target != r3 {
		t.Fatalf("cloned link should still point at R3")
	}
	if got := d.Links().Count(r3); got != 3 {
		t.Errorf("incoming(R3) = %d, want 3", got)
	}
	assertValid(t, d)
}

func TestCloneSubtree_CopiesParamsByValue(t *testing.T) {
	d := build(t, guardFile())
	s, err := dialog.CloneSubtree(d, slot(dialog.SpeakerLine, 1))
	if err != nil {
		t.Fatalf("CloneSubtree: %v", err)
	}
	cp, _ := d.NodeAt(s)
	cp.Action.Params.Set("stage", "99")
	cp.Edges[0].Target.Edges[0].Condition.Params.Set("skill", "bluff")

	orig, _ := d.NodeAt(slot(dialog.SpeakerLine, 1))
	if v, _ := orig.Action.Params.Get("stage"); v != "10" {
		t.Errorf("original action param = %q", v)
	}
	if v, _ := orig.Edges[0].Target.Edges[0].Condition.Params.Get("skill"); v != "persuade" {
		t.Errorf("original condition param = %q", v)
	}
}

func chainFile(n int) *container.File {
	f := &container.File{Starts: []container.EdgeRecord{to(0)}}
	for i := 0; i < n; i++ {
		e := line(fmt.Sprintf("E%d", i), to(i))
		r := line(fmt.Sprintf("R%d", i))
		if i+1 < n {
			r.Edges = []container.EdgeRecord{to(i + 1)}
		}
		f.Entries = append(f.Entries, e)
		f.Replies = append(f.Replies, r)
	}
	return f
}

func TestCloneDetached_DepthExceededLeavesDialogAlone(t *testing.T) {
	f := chainFile(10)
	d := build(t, f)

	_, err := dialog.CloneDetached(d, slot(dialog.SpeakerLine, 0), 5)
	if !errors.Is(err, dialog.ErrCloneDepthExceeded) {
		t.Fatalf("expected ErrCloneDepthExceeded, got %v", err)
	}
	if !reflect.DeepEqual(dialog.Flatten(d), chainFile(10)) {
		t.Errorf("failed clone mutated the dialog")
	}

	frag, err := dialog.CloneDetached(d, slot(dialog.SpeakerLine, 0), 100)
	if err != nil {
		t.Fatalf("CloneDetached: %v", err)
	}
	if len(frag.Nodes()) != 20 {
		t.Errorf("fragment nodes = %d, want 20", len(frag.Nodes()))
	}
}

func TestFragment_CopyCommitsTwice(t *testing.T) {
	d := build(t, guardFile())
	frag, err := dialog.CloneDetached(d, slot(dialog.ResponseLine, 0), 0)
	if err != nil {
		t.Fatalf("CloneDetached: %v", err)
	}
	a, err := dialog.Commit(d, frag.Copy())
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	b, err := dialog.Commit(d, frag.Copy())
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if a == b {
		t.Errorf("both pastes landed at %s", a)
	}
	na, _ := d.NodeAt(a)
	nb, _ := d.NodeAt(b)
	if na.Edges[0].Target == nb.Edges[0].Target {
		t.Errorf("pasted copies share a child")
	}
	assertValid(t, d)
}

func TestCommit_UnresolvableLinkMutatesNothing(t *testing.T) {
	d := build(t, sharedFile())
	frag, err := dialog.CloneDetached(d, slot(dialog.SpeakerLine, 2), 0)
	if err != nil {
		t.Fatalf("CloneDetached: %v", err)
	}

	// Replace the dialog the fragment's link points into with a smaller one.
	small := build(t, guardFile())
	before := dialog.Flatten(small)
	if _, err := dialog.Commit(small, frag); !errors.Is(err, dialog.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if !reflect.DeepEqual(before, dialog.Flatten(small)) {
		t.Errorf("failed commit mutated the dialog")
	}
}

func TestCommit_LinkFollowsSnapshotCopy(t *testing.T) {
	d := build(t, sharedFile())
	frag, err := dialog.CloneDetached(d, slot(dialog.SpeakerLine, 2), 0)
	if err != nil {
		t.Fatalf("CloneDetached: %v", err)
	}
	snap := d.Clone()

	s, err := dialog.Commit(snap, frag)
	if err != nil {
		t.Fatalf("Commit into snapshot: %v", err)
	}
	cp, _ := snap.NodeAt(s)
	r3, _ := snap.NodeAt(slot(dialog.ResponseLine, 3))
	if cp.Edges[1].Target != r3 {
		t.Errorf("link should resolve to the snapshot's R3")
	}
	assertValid(t, snap)
}
