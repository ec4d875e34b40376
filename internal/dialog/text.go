package dialog

import (
	"fmt"
	"sort"
)

// TextResolver looks up string-table references.
type TextResolver interface {
	Resolve(strRef int64) (string, bool)
}

// Placeholder is shown for a reference that cannot be resolved.
func Placeholder(strRef int64) string {
	return fmt.Sprintf("<StrRef:%d>", strRef)
}

// DisplayText returns the text to show for n in language lang: inline text
// first, then the resolved string-table entry, then a placeholder naming the
// reference. A node with neither text nor reference yields "".
// A successful lookup is cached in n.Text.Resolved.
func DisplayText(n *Node, lang LanguageID, r TextResolver) string {
	if s, ok := n.Text.Get(lang); ok && s != "" {
		return s
	}
	if n.Text.StrRef == NoStrRef {
		return firstInline(n.Text)
	}
	if n.Text.Resolved != "" {
		return n.Text.Resolved
	}
	if r != nil {
		if s, ok := r.Resolve(n.Text.StrRef); ok {
			n.Text.Resolved = s
			return s
		}
	}
	return Placeholder(n.Text.StrRef)
}

// firstInline falls back to the lowest-numbered language with text.
func firstInline(l LocString) string {
	langs := make([]int, 0, len(l.Strings))
	for k, v := range l.Strings {
		if v != "" {
			langs = append(langs, int(k))
		}
	}
	if len(langs) == 0 {
		return ""
	}
	sort.Ints(langs)
	return l.Strings[LanguageID(langs[0])]
}
