package dialog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// StructureNode is one vertex of the flowchart export.
type StructureNode struct {
	ID              string `json:"id"`
	Type            string `json:"type"` // root, npc, pc or link
	Text            string `json:"text"`
	Speaker         string `json:"speaker"`
	HasAction       bool   `json:"has_action"`
	HasCondition    bool   `json:"has_condition"`
	ActionScript    string `json:"action_script,omitempty"`
	ConditionScript string `json:"condition_script,omitempty"`
	IsLink          bool   `json:"is_link,omitempty"`
	LinkTarget      string `json:"link_target,omitempty"`
}

// StructureLink is one arc of the flowchart export.
type StructureLink struct {
	Source          string `json:"source"`
	Target          string `json:"target"`
	HasCondition    bool   `json:"has_condition"`
	ConditionScript string `json:"condition_script,omitempty"`
}

// Structure is the node/link view consumed by flowchart renderers.
type Structure struct {
	Nodes []StructureNode `json:"nodes"`
	Links []StructureLink `json:"links"`
}

// NodeID is the stable export id of the node at s.
func NodeID(s Slot) string {
	if s.Kind == SpeakerLine {
		return fmt.Sprintf("npc_%d", s.Index)
	}
	return fmt.Sprintf("pc_%d", s.Index)
}

// Export walks the dialog from its roots along every edge and returns its
// flowchart structure. Each stored node appears once; every link edge
// becomes its own "link" vertex pointing at the original.
func Export(d *Dialog, lang LanguageID, r TextResolver) *Structure {
	s := &Structure{
		Nodes: []StructureNode{{ID: "root", Type: "root", Text: "Dialog Start"}},
	}
	var order []*Node
	Walk(d.roots, AllEdges, func(n *Node, _ *Edge, _ int) bool {
		if d.Contains(n) {
			order = append(order, n)
		}
		return true
	})

	idOf := func(n *Node) string {
		slot, _ := d.SlotOf(n)
		return NodeID(slot)
	}
	addLink := func(from string, e *Edge) {
		to := idOf(e.Target)
		if e.IsLink {
			id := fmt.Sprintf("link_%d", len(s.Nodes))
			s.Nodes = append(s.Nodes, StructureNode{
				ID:              id,
				Type:            "link",
				Text:            "-> " + DisplayText(e.Target, lang, r),
				HasCondition:    e.Condition.Name != "",
				ConditionScript: e.Condition.Name,
				IsLink:          true,
				LinkTarget:      to,
			})
			to = id
		}
		s.Links = append(s.Links, StructureLink{
			Source:          from,
			Target:          to,
			HasCondition:    e.Condition.Name != "",
			ConditionScript: e.Condition.Name,
		})
	}

	for _, e := range d.roots {
		if d.Contains(e.Target) {
			addLink("root", e)
		}
	}
	for _, n := range order {
		typ := "npc"
		if n.Kind == ResponseLine {
			typ = "pc"
		}
		s.Nodes = append(s.Nodes, StructureNode{
			ID:           idOf(n),
			Type:         typ,
			Text:         DisplayText(n, lang, r),
			Speaker:      n.Speaker,
			HasAction:    n.Action.Name != "",
			ActionScript: n.Action.Name,
		})
		for _, e := range n.Edges {
			if d.Contains(e.Target) {
				addLink(idOf(n), e)
			}
		}
	}
	return s
}

// StructureHash fingerprints a structure so viewers can skip re-rendering
// when nothing changed.
func StructureHash(s *Structure) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("hash structure: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

var speakerPalette = []string{
	"#BA68C8",
	"#26A69A",
	"#FFD54F",
	"#F48FB1",
	"#8e4585",
	"#5a4d2d",
}

// SpeakerColors assigns a display color to every speaker tag used by a
// speaker line, plus the "_pc" and "_owner" defaults. Tags are colored in
// sorted order from a fixed palette; the overflow gets a hue derived from
// the tag.
func SpeakerColors(d *Dialog) map[string]string {
	colors := map[string]string{
		"_pc":    "#4FC3F7",
		"_owner": "#FF8A65",
	}
	set := make(map[string]struct{})
	for _, n := range d.speakers {
		if n.Speaker != "" {
			set[n.Speaker] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for i, t := range tags {
		if i < len(speakerPalette) {
			colors[t] = speakerPalette[i]
			continue
		}
		sum := 0
		for _, r := range t {
			sum += int(r)
		}
		colors[t] = fmt.Sprintf("hsl(%d, 50%%, 35%%)", sum%360)
	}
	return colors
}
