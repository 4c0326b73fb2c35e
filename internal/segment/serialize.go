package segment

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Serialize renders a list of nodes, in order, to their concatenated HTML
// serialisation — the originalHtml/translatedHtml representation spec.md
// §3 describes for a segment's captured fragment.
func Serialize(nodes []*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		_ = html.Render(&sb, n)
	}
	return sb.String()
}

// ParseFragment parses a markup fragment into a node list with the lenient
// HTML parser, in a <body> context. It does no strict XML decoding; the
// Reassembler's fragment fallback chain (spec §4.5) runs its own XML
// well-formedness checks and then calls this helper to build the nodes it
// splices in. It returns nil only if the parser reports an error.
func ParseFragment(markup string) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil
	}
	return nodes
}
