package dialog

import (
	"errors"
	"sort"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
)

// Build constructs a Dialog from a decoded container. Edges are resolved by
// position; out-of-range indices are kept as loaded so ValidateIndices can
// report them. RecalculateIndices runs once before returning.
func Build(f *container.File) (*Dialog, error) {
	if f == nil {
		return nil, errors.New("build dialog: nil container")
	}
	d := New()
	d.EndConversation = f.EndConversation
	d.EndConverAbort = f.EndConverAbort
	d.PreventZoom = f.PreventZoom

	lists := []struct {
		kind Kind
		recs []container.NodeRecord
	}{
		{SpeakerLine, f.Entries},
		{ResponseLine, f.Replies},
	}
	for _, l := range lists {
		for _, rec := range l.recs {
			n := &Node{Kind: l.kind}
			n.SetValues(rec)
			d.insertNode(n)
		}
	}
	for _, l := range lists {
		for i, rec := range l.recs {
			owner := d.list(l.kind)[i]
			for _, er := range rec.Edges {
				e := edgeFromRecord(l.kind.Other(), er)
				e.owner = owner
				e.Target = d.lookup(e.TargetKind, e.Index)
				owner.Edges = append(owner.Edges, e)
				d.links.Register(e)
			}
		}
	}
	for _, er := range f.Starts {
		e := edgeFromRecord(SpeakerLine, er)
		e.IsRoot = true
		e.Target = d.lookup(SpeakerLine, e.Index)
		d.roots = append(d.roots, e)
		d.links.Register(e)
	}
	RecalculateIndices(d)
	return d, nil
}

// Flatten is the inverse of Build. It writes indices as stored; callers run
// RecalculateIndices and ValidateIndices first.
func Flatten(d *Dialog) *container.File {
	f := &container.File{
		EndConversation: d.EndConversation,
		EndConverAbort:  d.EndConverAbort,
		PreventZoom:     d.PreventZoom,
		Entries:         make([]container.NodeRecord, 0, len(d.speakers)),
		Replies:         make([]container.NodeRecord, 0, len(d.responses)),
		Starts:          make([]container.EdgeRecord, 0, len(d.roots)),
	}
	for _, n := range d.speakers {
		f.Entries = append(f.Entries, recordWithEdges(n))
	}
	for _, n := range d.responses {
		f.Replies = append(f.Replies, recordWithEdges(n))
	}
	for _, e := range d.roots {
		f.Starts = append(f.Starts, edgeRecord(e))
	}
	return f
}

func recordWithEdges(n *Node) container.NodeRecord {
	rec := RecordOf(n)
	for _, e := range n.Edges {
		rec.Edges = append(rec.Edges, edgeRecord(e))
	}
	return rec
}

// RecordOf returns n's values without any edges, the form handed to the
// trash store.
func RecordOf(n *Node) container.NodeRecord {
	rec := container.NodeRecord{
		Text:         locRecord(n.Text),
		Speaker:      n.Speaker,
		Comment:      n.Comment,
		Sound:        n.Sound,
		Quest:        n.Quest,
		QuestEntry:   n.QuestEntry,
		Delay:        n.Delay,
		Action:       n.Action.Name,
		ActionParams: paramRecords(n.Action.Params),
	}
	return rec
}

// SetValues overwrites n's values from rec. Edges in rec are ignored.
func (n *Node) SetValues(rec container.NodeRecord) {
	n.Text = LocString{StrRef: rec.Text.StrRef}
	for _, ls := range rec.Text.Strings {
		n.Text.Set(LanguageID(ls.Language), ls.Text)
	}
	n.Speaker = rec.Speaker
	n.Comment = rec.Comment
	n.Sound = rec.Sound
	n.Quest = rec.Quest
	n.QuestEntry = rec.QuestEntry
	n.Delay = rec.Delay
	n.Action = Script{Name: rec.Action, Params: paramsFrom(rec.ActionParams)}
}

func edgeFromRecord(kind Kind, er container.EdgeRecord) *Edge {
	return &Edge{
		TargetKind:  kind,
		Index:       er.Index,
		Condition:   Script{Name: er.Condition, Params: paramsFrom(er.ConditionParams)},
		IsLink:      er.IsLink,
		LinkComment: er.LinkComment,
	}
}

func edgeRecord(e *Edge) container.EdgeRecord {
	return container.EdgeRecord{
		Index:           e.Index,
		Condition:       e.Condition.Name,
		ConditionParams: paramRecords(e.Condition.Params),
		IsLink:          e.IsLink,
		LinkComment:     e.LinkComment,
	}
}

func locRecord(l LocString) container.LocRecord {
	rec := container.LocRecord{StrRef: l.StrRef}
	langs := make([]int, 0, len(l.Strings))
	for k := range l.Strings {
		langs = append(langs, int(k))
	}
	sort.Ints(langs)
	for _, k := range langs {
		rec.Strings = append(rec.Strings, container.LangString{Language: k, Text: l.Strings[LanguageID(k)]})
	}
	return rec
}

func paramsFrom(ps []container.Param) Params {
	if len(ps) == 0 {
		return nil
	}
	out := make(Params, len(ps))
	for i, p := range ps {
		out[i] = Param{Key: p.Key, Value: p.Value}
	}
	return out
}

func paramRecords(ps Params) []container.Param {
	if len(ps) == 0 {
		return nil
	}
	out := make([]container.Param, len(ps))
	for i, p := range ps {
		out[i] = container.Param{Key: p.Key, Value: p.Value}
	}
	return out
}
