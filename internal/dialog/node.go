package dialog

import "fmt"

// Kind discriminates the two node lists.
type Kind uint8

const (
	// SpeakerLine is a non-player line (an "entry").
	SpeakerLine Kind = iota
	// ResponseLine is a player-selectable line (a "reply").
	ResponseLine
)

func (k Kind) String() string {
	switch k {
	case SpeakerLine:
		return "speaker"
	case ResponseLine:
		return "response"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Other returns the only kind a node of kind k may point at.
func (k Kind) Other() Kind {
	if k == SpeakerLine {
		return ResponseLine
	}
	return SpeakerLine
}

// Slot is a node's address: its kind plus its position in that list.
type Slot struct {
	Kind  Kind `json:"kind"`
	Index int  `json:"index"`
}

func (s Slot) String() string { return fmt.Sprintf("%s#%d", s.Kind, s.Index) }

// LanguageID identifies a localized string variant.
type LanguageID int

// NoStrRef marks a LocString without a string-table reference.
const NoStrRef int64 = -1

// LocString is localized node text.
type LocString struct {
	Strings  map[LanguageID]string
	Resolved string // filled by DisplayText, never serialized
	StrRef   int64
}

// NewLocString returns a LocString holding text for lang.
func NewLocString(lang LanguageID, text string) LocString {
	ls := LocString{StrRef: NoStrRef}
	if text != "" {
		ls.Strings = map[LanguageID]string{lang: text}
	}
	return ls
}

// Get returns the inline text for lang.
func (l LocString) Get(lang LanguageID) (string, bool) {
	s, ok := l.Strings[lang]
	return s, ok
}

// Set stores inline text for lang.
func (l *LocString) Set(lang LanguageID, text string) {
	if l.Strings == nil {
		l.Strings = make(map[LanguageID]string)
	}
	l.Strings[lang] = text
}

// IsEmpty reports whether the string carries neither inline text nor a reference.
func (l LocString) IsEmpty() bool {
	for _, s := range l.Strings {
		if s != "" {
			return false
		}
	}
	return l.StrRef == NoStrRef
}

// Clone returns a deep copy.
func (l LocString) Clone() LocString {
	out := LocString{Resolved: l.Resolved, StrRef: l.StrRef}
	if l.Strings != nil {
		out.Strings = make(map[LanguageID]string, len(l.Strings))
		for k, v := range l.Strings {
			out.Strings[k] = v
		}
	}
	return out
}

// Param is one script parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Params is an ordered key/value mapping. Script schemas live outside this
// system, so values stay strings.
type Params []Param

// Get returns the value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces the value for key in place or appends it.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Script is a script reference plus its parameters.
type Script struct {
	Name   string
	Params Params
}

// Clone returns an independent copy.
func (s Script) Clone() Script {
	return Script{Name: s.Name, Params: s.Params.Clone()}
}

// Node is one line of dialog. Its identity is its slot, not its content;
// pos is maintained by the store and is -1 once the node leaves it.
type Node struct {
	Kind       Kind
	Text       LocString
	Speaker    string // speaker lines only
	Comment    string
	Sound      string
	Quest      string
	QuestEntry uint32
	Delay      uint32
	Action     Script
	Edges      []*Edge

	// CycleStub marks a terminal copy produced where a clone revisited a node.
	CycleStub bool

	pos     int
	lineage uint64 // shared by a node and its snapshot copies
}

// Position returns the node's list position, or -1 when detached.
func (n *Node) Position() int { return n.pos }

// copyValues returns a value-only copy: no edges, not in any store.
func (n *Node) copyValues() *Node {
	return &Node{
		Kind:       n.Kind,
		Text:       n.Text.Clone(),
		Speaker:    n.Speaker,
		Comment:    n.Comment,
		Sound:      n.Sound,
		Quest:      n.Quest,
		QuestEntry: n.QuestEntry,
		Delay:      n.Delay,
		Action:     n.Action.Clone(),
		pos:        -1,
	}
}

// Edge points from an owner node (or the root list) at a target slot.
// Target is a cache of (TargetKind, Index) recomputed by RecalculateIndices.
type Edge struct {
	TargetKind  Kind
	Index       int
	Target      *Node
	Condition   Script
	IsLink      bool
	IsRoot      bool
	LinkComment string

	owner *Node
}

// Owner returns the node holding this edge, or nil for root edges.
func (e *Edge) Owner() *Node { return e.owner }

// NewEdge returns an unregistered edge pointing at target.
func NewEdge(target *Node, isLink bool) *Edge {
	return &Edge{TargetKind: target.Kind, Index: target.pos, Target: target, IsLink: isLink}
}

// copyValues duplicates the edge's payload. The copy has no owner and keeps
// pointing at the same target.
func (e *Edge) copyValues() *Edge {
	return &Edge{
		TargetKind:  e.TargetKind,
		Index:       e.Index,
		Target:      e.Target,
		Condition:   e.Condition.Clone(),
		IsLink:      e.IsLink,
		IsRoot:      e.IsRoot,
		LinkComment: e.LinkComment,
	}
}
