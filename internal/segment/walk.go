package segment

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// Walk performs the authoritative body walk of spec §4.2: breakers flush
// and are skipped, headers flush and are emitted alone, leaf translatable
// blocks are captured whole subject to the character budget, everything
// else with children is descended into pre-order, and (schema v2 only)
// non-empty orphan text nodes are captured under the same budget rule.
// onFlush is called once per batch, in the order batches are produced; the
// caller assigns batchIndex monotonically. Both the Segmenter and the
// Reassembler drive this same function so their batch boundaries can never
// drift apart.
func Walk(body *html.Node, schema model.SchemaVersion, budgetChars int, onFlush func(nodes []*html.Node)) {
	w := &walker{schema: schema, budget: budgetChars, onFlush: onFlush}
	w.walkChildren(body)
	w.flush()
}

type walker struct {
	schema   model.SchemaVersion
	budget   int
	batch    []*html.Node
	batchLen int
	onFlush  func([]*html.Node)
}

func (w *walker) flush() {
	if len(w.batch) == 0 {
		return
	}
	w.onFlush(w.batch)
	w.batch = nil
	w.batchLen = 0
}

// addLeaf implements tie-break (1): an oversized leaf is still captured
// even into an otherwise-empty batch; otherwise a would-overflow node
// triggers a flush first.
func (w *walker) addLeaf(n *html.Node) {
	size := len(Serialize([]*html.Node{n}))
	if len(w.batch) > 0 && w.batchLen+size > w.budget {
		w.flush()
	}
	w.batch = append(w.batch, n)
	w.batchLen += size
}

func (w *walker) walkChildren(parent *html.Node) {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			switch k := Classify(c.Data, w.schema); {
			case k == KindBreaker:
				w.flush()
			case k == KindHeader:
				w.flush()
				w.onFlush([]*html.Node{c})
			case IsLeafTranslatableBlock(c, w.schema):
				w.addLeaf(c)
			default:
				if c.FirstChild != nil {
					w.walkChildren(c)
				}
			}
		case html.TextNode:
			if w.schema == model.SchemaV2 && strings.TrimSpace(c.Data) != "" {
				w.addLeaf(c)
			}
		}
	}
}
