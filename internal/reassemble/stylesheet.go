package reassemble

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// rtlLanguages is the set of target language codes that flip reading
// direction. The reference case is Arabic; Hebrew, Farsi, and Urdu share
// the same right-to-left convention.
var rtlLanguages = map[string]bool{
	"ar": true, "he": true, "fa": true, "ur": true,
}

// DirectionFor reports the CSS/HTML direction for a target language code.
func DirectionFor(targetLang string) string {
	if rtlLanguages[strings.ToLower(targetLang)] {
		return "rtl"
	}
	return "ltr"
}

// alignmentSelectors is the broad set of block-level selectors spec §4.5
// step 3 asks the alignment rule to cover.
const alignmentSelectors = "p, div, li, blockquote, h1, h2, h3, h4, h5, h6, td, th, dd, dt"

// buildStylesheet renders the injected <style> block text: an unconditional
// direction rule plus, when export settings request it, a text-alignment
// rule either scoped to html/body (book styles win on specificity) or
// forced with !important across the broad selector set.
func buildStylesheet(dir string, settings model.ExportSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "html, body { direction: %s; }\n", dir)

	if settings.TextAlignment != "" {
		important := ""
		selectors := "html, body"
		if settings.ForceAlignment {
			important = " !important"
			selectors = alignmentSelectors
		}
		fmt.Fprintf(&b, "%s { text-align: %s%s; }\n", selectors, settings.TextAlignment, important)
	}
	return b.String()
}

// injectStylesheet prepends a <style> element to head, ahead of any
// existing children, so the book's own stylesheet links still load after
// it and win on source order where specificity ties.
func injectStylesheet(head *html.Node, css string) {
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})

	if head.FirstChild != nil {
		head.InsertBefore(style, head.FirstChild)
	} else {
		head.AppendChild(style)
	}
}

// setDirLang sets (or replaces) the dir and lang attributes on n.
func setDirLang(n *html.Node, dir, lang string) {
	setAttr(n, "dir", dir)
	setAttr(n, "lang", lang)
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
