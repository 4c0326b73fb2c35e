// Package segment implements the Segmenter (spec §4.2): walking a content
// document's body and cutting it into translation-unit segments bounded by
// a soft character budget. The classification function in this file is
// shared, unchanged, with the Reassembler so that re-walking the original
// document during export produces the exact same batch boundaries that
// were chosen at import time.
package segment

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// Kind is the classification spec.md §4.2 assigns to an element tag.
type Kind int

const (
	KindOther Kind = iota
	KindBlock
	KindBreaker
	KindHeader
)

var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "aside": true, "main": true,
	"header": true, "footer": true,
}

var breakerTags = map[string]bool{
	"img": true, "hr": true, "pre": true, "svg": true, "figure": true,
}

var headerTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Classify returns the tag's Kind for the given schema version. Tables are
// block-level in v2 and a breaker (atomic, uncaptured) in v1 (spec §4.2).
func Classify(tagName string, schema model.SchemaVersion) Kind {
	tag := strings.ToLower(tagName)
	if headerTags[tag] {
		return KindHeader
	}
	if tag == "table" {
		if schema == model.SchemaV1 {
			return KindBreaker
		}
		return KindBlock
	}
	if breakerTags[tag] {
		return KindBreaker
	}
	if blockTags[tag] {
		return KindBlock
	}
	return KindOther
}

// IsLeafTranslatableBlock reports whether n is a block-tag element with
// non-empty trimmed text content and no descendant element that is itself
// a block or breaker (spec §4.2) — the unit the walk captures whole
// instead of descending into.
func IsLeafTranslatableBlock(n *html.Node, schema model.SchemaVersion) bool {
	if n.Type != html.ElementNode || Classify(n.Data, schema) != KindBlock {
		return false
	}
	if strings.TrimSpace(textContent(n)) == "" {
		return false
	}
	return !containsBlockOrBreakerDescendant(n, schema)
}

func containsBlockOrBreakerDescendant(n *html.Node, schema model.SchemaVersion) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			k := Classify(c.Data, schema)
			if k == KindBlock || k == KindBreaker || k == KindHeader {
				return true
			}
			if containsBlockOrBreakerDescendant(c, schema) {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
