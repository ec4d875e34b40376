package dialog_test

import (
	"testing"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

func loc(text string) container.LocRecord {
	return container.LocRecord{StrRef: -1, Strings: []container.LangString{{Language: 0, Text: text}}}
}

func line(text string, edges ...container.EdgeRecord) container.NodeRecord {
	return container.NodeRecord{Text: loc(text), Edges: edges}
}

func to(i int) container.EdgeRecord { return container.EdgeRecord{Index: i} }

func link(i int) container.EdgeRecord { return container.EdgeRecord{Index: i, IsLink: true} }

// guardFile is a small conversation:
//
//	root -> E0 "Hello"
//	  E0 -> R0 "Greetings" -> E1 "I have a quest" -> R2 "Tell me more" -> (link E1)
//	  E0 -> R1 "What do you want?" -> E2 "No need to be rude"
func guardFile() *container.File {
	quest := line("I have a quest", to(2))
	quest.Speaker = "Guard"
	quest.Action = "sc_start_quest"
	quest.ActionParams = []container.Param{{Key: "quest", Value: "q_cave"}, {Key: "stage", Value: "10"}}
	hello := line("Hello", to(0), to(1))
	hello.Speaker = "Guard"
	tell := line("Tell me more", link(1))
	tell.Edges[0].Condition = "gc_check_skill"
	tell.Edges[0].ConditionParams = []container.Param{{Key: "skill", Value: "persuade"}}
	return &container.File{
		EndConversation: "nw_walk_wp",
		Entries: []container.NodeRecord{
			hello,
			quest,
			line("No need to be rude"),
		},
		Replies: []container.NodeRecord{
			line("Greetings", to(1)),
			line("What do you want?", to(2)),
			tell,
		},
		Starts: []container.EdgeRecord{to(0)},
	}
}

func build(t *testing.T, f *container.File) *dialog.Dialog {
	t.Helper()
	d, err := dialog.Build(f)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return d
}

func edgeAt(t *testing.T, d *dialog.Dialog, p ...int) *dialog.Edge {
	t.Helper()
	e, err := d.EdgeAt(dialog.Path(p))
	if err != nil {
		t.Fatalf("EdgeAt(%v): %v", p, err)
	}
	return e
}

func textOf(n *dialog.Node) string {
	s, _ := n.Text.Get(0)
	return s
}

func slot(k dialog.Kind, i int) dialog.Slot { return dialog.Slot{Kind: k, Index: i} }

func assertValid(t *testing.T, d *dialog.Dialog) {
	t.Helper()
	if errs := dialog.ValidateIndices(d); len(errs) != 0 {
		t.Fatalf("expected valid dialog, got %v", dialog.Join(errs))
	}
}
