package dialog_test

import (
	"fmt"
	"testing"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

type mapResolver map[int64]string

func (m mapResolver) Resolve(ref int64) (string, bool) {
	s, ok := m[ref]
	return s, ok
}

func TestExport_Structure(t *testing.T) {
	d := build(t, guardFile())
	s := dialog.Export(d, 0, nil)

	// root, six lines and one link vertex; the root arc plus six edges.
	if len(s.Nodes) != 8 || len(s.Links) != 7 {
		t.Fatalf("structure = %d nodes / %d links, want 8 / 7", len(s.Nodes), len(s.Links))
	}
	if s.Nodes[0].ID != "root" || s.Nodes[0].Type != "root" {
		t.Errorf("first node = %+v, want the root", s.Nodes[0])
	}
	if l := s.Links[0]; l.Source != "root" || l.Target != "npc_0" {
		t.Errorf("first arc = %+v, want root -> npc_0", l)
	}
	var linkNode *dialog.StructureNode
	for i := range s.Nodes {
		if s.Nodes[i].Type == "link" {
			linkNode = &s.Nodes[i]
		}
	}
	if linkNode == nil {
		t.Fatalf("no link vertex in %+v", s.Nodes)
	}
	if linkNode.LinkTarget != "npc_1" || linkNode.Text != "-> I have a quest" || !linkNode.HasCondition {
		t.Errorf("link vertex = %+v", *linkNode)
	}
	found := false
	for _, l := range s.Links {
		if l.Source == "pc_2" && l.Target == linkNode.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("no arc from pc_2 to %s", linkNode.ID)
	}
}

func TestStructureHash_TracksChanges(t *testing.T) {
	d := build(t, guardFile())
	h1, err := dialog.StructureHash(dialog.Export(d, 0, nil))
	if err != nil {
		t.Fatalf("StructureHash: %v", err)
	}
	h2, _ := dialog.StructureHash(dialog.Export(d, 0, nil))
	if h1 != h2 {
		t.Errorf("hash not stable: %s vs %s", h1, h2)
	}
	n, _ := d.NodeAt(slot(dialog.SpeakerLine, 2))
	n.Text.Set(0, "Fine, fine")
	h3, _ := dialog.StructureHash(dialog.Export(d, 0, nil))
	if h3 == h1 {
		t.Errorf("hash did not change after an edit")
	}
}

func TestDisplayText(t *testing.T) {
	n := &dialog.Node{Text: dialog.LocString{StrRef: 42}}
	if got := dialog.DisplayText(n, 0, mapResolver{}); got != "<StrRef:42>" {
		t.Errorf("unresolved = %q", got)
	}
	if got := dialog.DisplayText(n, 0, mapResolver{42: "Well met"}); got != "Well met" {
		t.Errorf("resolved = %q", got)
	}
	if n.Text.Resolved != "Well met" {
		t.Errorf("resolution not cached")
	}

	inline := &dialog.Node{Text: dialog.NewLocString(2, "Bonjour")}
	if got := dialog.DisplayText(inline, 0, nil); got != "Bonjour" {
		t.Errorf("fallback language = %q", got)
	}
	empty := &dialog.Node{Text: dialog.NewLocString(0, "")}
	if got := dialog.DisplayText(empty, 0, nil); got != "" {
		t.Errorf("empty = %q", got)
	}
}

func TestSpeakerColors(t *testing.T) {
	f := &container.File{}
	for _, tag := range []string{"g", "b", "a", "c", "d", "e", "f", "b"} {
		rec := line("x")
		rec.Speaker = tag
		f.Entries = append(f.Entries, rec)
	}
	colors := dialog.SpeakerColors(build(t, f))

	want := map[string]string{
		"_pc":    "#4FC3F7",
		"_owner": "#FF8A65",
		"a":      "#BA68C8",
		"f":      "#5a4d2d",
		"g":      fmt.Sprintf("hsl(%d, 50%%, 35%%)", 'g'),
	}
	for tag, c := range want {
		if colors[tag] != c {
			t.Errorf("color[%q] = %q, want %q", tag, colors[tag], c)
		}
	}
	if len(colors) != 9 {
		t.Errorf("colors = %d entries, want 9", len(colors))
	}
}
