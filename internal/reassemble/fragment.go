package reassemble

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/nerdneilsfield/epub-translate/internal/segment"
)

// entityRef matches a well-formed XML/HTML character or named entity
// reference, used to tell a bare "&" apart from one that is already part
// of a valid reference.
var entityRef = regexp.MustCompile(`&(#[0-9]+|#x[0-9A-Fa-f]+|[A-Za-z][A-Za-z0-9]*);`)

// parseTranslatedFragment implements spec §4.5 step 4's fallback chain:
// try strict XML first, then retry after escaping bare ampersands, then
// fall back to the lenient HTML parser that never fails outright.
func parseTranslatedFragment(markup string) []*html.Node {
	if isWellFormedXMLFragment(markup) {
		return segment.ParseFragment(markup)
	}
	if escaped := escapeBareAmpersands(markup); isWellFormedXMLFragment(escaped) {
		return segment.ParseFragment(escaped)
	}
	return segment.ParseFragment(markup)
}

func isWellFormedXMLFragment(markup string) bool {
	dec := xml.NewDecoder(strings.NewReader("<root>" + markup + "</root>"))
	dec.Strict = true
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return true
		}
		if err != nil {
			return false
		}
	}
}

// escapeBareAmpersands rewrites every "&" that is not already the start of
// a valid entity reference into "&amp;", leaving genuine references alone.
func escapeBareAmpersands(s string) string {
	var buf strings.Builder
	last := 0
	for _, loc := range entityRef.FindAllStringIndex(s, -1) {
		buf.WriteString(strings.ReplaceAll(s[last:loc[0]], "&", "&amp;"))
		buf.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	buf.WriteString(strings.ReplaceAll(s[last:], "&", "&amp;"))
	return buf.String()
}
