package reassemble

import (
	"bytes"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nerdneilsfield/epub-translate/internal/model"
	"github.com/nerdneilsfield/epub-translate/internal/segment"
)

// Options configures a single content document's reassembly.
type Options struct {
	Schema      model.SchemaVersion
	BudgetChars int
	TargetLang  string
	Export      model.ExportSettings
	Logger      *zap.Logger // optional; defaults to a no-op logger
}

// ApplyContentDocument implements spec §4.5's per-document algorithm: it
// re-walks markup with the same classification rules the Segmenter used,
// replaces every TRANSLATED batch's captured nodes with its translated
// markup, injects the direction/alignment stylesheet, and stamps
// document-level language/direction attributes. segments must already be
// sorted by BatchIndex and belong to exactly this document.
func ApplyContentDocument(markup string, segments []model.Segment, opts Options) (string, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}

	htmlEl := findElement(root, atom.Html)
	if htmlEl == nil {
		return "", ErrNoHTMLElement
	}
	head := ensureHead(htmlEl)
	body := findElement(htmlEl, atom.Body)
	if body == nil {
		return "", ErrNoBodyElement
	}

	dir := DirectionFor(opts.TargetLang)
	setDirLang(htmlEl, dir, opts.TargetLang)
	setDirLang(body, dir, opts.TargetLang)
	injectStylesheet(head, buildStylesheet(dir, opts.Export))

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var patches []patch
	idx := 0
	segCount := len(segments)
	budget := opts.BudgetChars
	if budget <= 0 {
		budget = segment.DefaultBudgetChars
	}

	segment.Walk(body, opts.Schema, budget, func(nodes []*html.Node) {
		if idx >= segCount || len(nodes) == 0 {
			idx++
			return
		}
		seg := segments[idx]
		idx++
		if seg.Status != model.StatusTranslated {
			return
		}

		translatedNodes := parseTranslatedFragment(seg.Translated)
		if len(translatedNodes) == 0 {
			logger.Warn("translated fragment unparsable by every fallback, leaving original nodes in place",
				zap.Int("batchIndex", seg.BatchIndex), zap.String("docPath", seg.DocPath))
			return
		}
		for _, n := range translatedNodes {
			markDirRecursive(n, dir)
		}
		patches = append(patches, patch{
			insertBefore: nodes[0],
			insert:       translatedNodes,
			remove:       append([]*html.Node(nil), nodes...),
		})
	})

	applyPatches(patches)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}
