package translator

import (
	"regexp"
	"sort"

	"github.com/dlclark/regexp2"
)

// tagPattern matches a maximal opening or closing tag name token — case
// sensitive, attribute-free — exactly as spec §4.4 defines tags(s).
var tagPattern = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*`)

// Tags returns the sorted multiset of tag tokens extracted from s.
func Tags(s string) []string {
	matches := tagPattern.FindAllString(s, -1)
	sort.Strings(matches)
	return matches
}

// TagsEqual reports multiset equality of tags(a) and tags(b) — the
// mandatory tag-integrity check of spec §4.4.
func TagsEqual(a, b string) bool {
	ta, tb := Tags(a), Tags(b)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

// stripCodeFence removes a leading "```html" (or bare "```") marker and a
// matching trailing "```" before integrity checking (spec §4.4 Cleanup).
// The fence marker's length is not fixed by the spec, so the pattern uses
// a backreference to require the closing fence match the opening one —
// expressible in regexp2 (RE2, the standard library's engine, has no
// backreference support) rather than the two-pass stdlib workaround a
// fixed-length assumption would otherwise force.
var codeFencePattern = regexp2.MustCompile("(?s)^\\s*(`{3,})(?:html)?\\s*\n(.*?)\n?\\s*\\1\\s*$", regexp2.None)

func stripCodeFence(s string) string {
	m, err := codeFencePattern.FindStringMatch(s)
	if err != nil || m == nil {
		return s
	}
	groups := m.Groups()
	if len(groups) < 3 {
		return s
	}
	return groups[2].String()
}
