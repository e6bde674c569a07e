// Package extract implements the price-extraction engine: locale
// detection, product-name detection, price candidate scanning, and
// candidate scoring over one parsed HTML document. Every pass is a pure
// computation over an immutable htmldoc.Document; the engine holds no
// mutable state and is safe to share across goroutines.
package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/pricewatch/internal/htmldoc"
)

// Engine runs the auto-detection and manual-selector pipelines.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine { return &Engine{} }

// Auto runs the full auto-detection pipeline: culture, then name, then
// price scanning and scoring. Each step's failure short-circuits into a
// typed Failed result. More than one plausible price group yields
// Ambiguous: the engine never guesses among competing prices.
func (e *Engine) Auto(doc *htmldoc.Document) Result {
	loc := DetectCulture(doc)
	if loc == nil {
		return failed(FailUnknownCulture)
	}

	name, title, ok := DetectName(doc)
	if !ok {
		return failed(FailUnknownName)
	}

	candidates := Scan(doc, *loc)
	groups := ScoreGroups(doc, candidates, name)
	if len(groups) == 0 {
		return failed(FailUnknownPrice)
	}

	zap.L().Debug("extract: auto pipeline scored price groups",
		zap.String("locale", loc.Tag),
		zap.String("name", name),
		zap.Int("candidates", len(candidates)),
		zap.Int("groups", len(groups)),
	)

	if len(groups) == 1 {
		return success(groups[0].Candidates[0], name, title, *loc)
	}
	return ambiguous(groups, name, title, *loc)
}

// Manual runs the pinned-selector pipeline: name, locale tag, and
// selector all supplied externally. Meta-style matches are read from
// their content attribute, anything else from its text.
func (e *Engine) Manual(doc *htmldoc.Document, name, localeTag, selector string) Result {
	if name == "" || localeTag == "" || selector == "" {
		return failed(FailMissingManualParam)
	}
	loc, ok := LocaleByTag(localeTag)
	if !ok {
		return failed(FailMissingManualParam)
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return failed(FailInvalidManualPrice)
	}
	n := sel.Nodes[0]

	info := PriceInfo{Source: SourceText, NodeID: -1}
	var raw string
	if strings.EqualFold(n.Data, "meta") {
		raw, _ = htmldoc.Attr(n, "content")
		info.Source = SourceAttribute
		info.AttributeName = "content"
	} else {
		raw = htmldoc.Text(n)
	}
	if id, ok := doc.ID(n); ok {
		info.NodeID = id
	}

	pv := ParsePrice(raw, loc)
	if !pv.Valid {
		return failed(FailInvalidManualPrice)
	}
	info.Price = pv

	return success(info, name, name, loc)
}
