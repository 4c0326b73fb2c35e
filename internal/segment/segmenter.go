package segment

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// DefaultBudgetChars is BATCH_CHAR_LIMIT from spec §4.2.
const DefaultBudgetChars = 6000

// Segment runs the Segmenter over one content document's markup, producing
// an ordered list of PENDING segments for docPath (spec §4.2).
func Segment(docPath string, markup string, schema model.SchemaVersion, budgetChars int) ([]model.Segment, error) {
	if budgetChars <= 0 {
		budgetChars = DefaultBudgetChars
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("segment: parsing %s: %w", docPath, err)
	}

	body := findBody(doc)
	if body == nil {
		return nil, fmt.Errorf("segment: %s has no body element", docPath)
	}

	var segments []model.Segment
	batchIndex := 0
	Walk(body, schema, budgetChars, func(nodes []*html.Node) {
		segments = append(segments, model.Segment{
			ID:           fmt.Sprintf("%s::%d", docPath, batchIndex),
			DocPath:      docPath,
			BatchIndex:   batchIndex,
			OriginalHTML: Serialize(nodes),
			Status:       model.StatusPending,
		})
		batchIndex++
	})

	return segments, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
