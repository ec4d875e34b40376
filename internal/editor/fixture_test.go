package editor_test

import (
	"testing"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/editor"
	"github.com/gyaneshwarpardhi/dlgedit/internal/trash"
)

func loc(text string) container.LocRecord {
	return container.LocRecord{StrRef: -1, Strings: []container.LangString{{Language: 0, Text: text}}}
}

func line(text string, edges ...container.EdgeRecord) container.NodeRecord {
	return container.NodeRecord{Text: loc(text), Edges: edges}
}

func to(i int) container.EdgeRecord { return container.EdgeRecord{Index: i} }

func link(i int) container.EdgeRecord { return container.EdgeRecord{Index: i, IsLink: true} }

// guardFile:
//
//	[0]         E0 "Hello"
//	[0,0]       R0 "Greetings"
//	[0,0,0]     E1 "I have a quest"
//	[0,0,0,0]   R2 "Tell me more"
//	[0,0,0,0,0] link -> E1
//	[0,1]       R1 "What do you want?"
//	[0,1,0]     E2 "No need to be rude"
func guardFile() *container.File {
	quest := line("I have a quest", to(2))
	quest.Speaker = "Guard"
	quest.Action = "sc_start_quest"
	return &container.File{
		Entries: []container.NodeRecord{
			line("Hello", to(0), to(1)),
			quest,
			line("No need to be rude"),
		},
		Replies: []container.NodeRecord{
			line("Greetings", to(1)),
			line("What do you want?", to(2)),
			line("Tell me more", link(1)),
		},
		Starts: []container.EdgeRecord{to(0)},
	}
}

// sharedFile has R2 held strongly by E1 and by a link from E2:
//
//	[0]       E0 "Hello"
//	[0,0]     R0 "Yes" -> E1 "Take this" -> R2 "Thanks"
//	[0,1]     R1 "No"  -> E2 "Suit yourself" -> (link R2)
func sharedFile() *container.File {
	return &container.File{
		Entries: []container.NodeRecord{
			line("Hello", to(0), to(1)),
			line("Take this", to(2)),
			line("Suit yourself", link(2)),
		},
		Replies: []container.NodeRecord{
			line("Yes", to(1)),
			line("No", to(2)),
			line("Thanks"),
		},
		Starts: []container.EdgeRecord{to(0)},
	}
}

func newSession(t *testing.T, f *container.File, opts editor.Options) *editor.Session {
	t.Helper()
	d, err := dialog.Build(f)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if opts.Trash == nil {
		opts.Trash = trash.NewMemoryStore()
	}
	return editor.New("test", "", d, opts)
}

func path(p ...int) dialog.Path { return dialog.Path(p) }

func undoDepth(s *editor.Session) int {
	n, _ := s.History().Len()
	return n
}

func assertValid(t *testing.T, s *editor.Session) {
	t.Helper()
	if errs := dialog.ValidateIndices(s.Dialog()); len(errs) != 0 {
		t.Fatalf("expected valid dialog, got %v", dialog.Join(errs))
	}
}

func textAt(t *testing.T, s *editor.Session, p dialog.Path) string {
	t.Helper()
	txt, err := s.Text(p)
	if err != nil {
		t.Fatalf("Text(%s): %v", p, err)
	}
	return txt
}
