package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/sells-group/pricewatch/internal/htmldoc"
)

// trustedPriceQueries are structural queries whose values are considered
// authoritative. When any of them yields a parseable price, heuristic
// scanning is skipped entirely.
var trustedPriceQueries = []metaQuery{
	{Selector: `meta[itemprop="price"]`, Attr: "content"},
	{Selector: `[itemprop="price"]`, Attr: "content"},
	{Selector: `[itemprop="price"]`},
	{Selector: `meta[property="og:price:amount"]`, Attr: "content"},
	{Selector: `meta[property="product:price:amount"]`, Attr: "content"},
	{Selector: `meta[name="twitter:data1"]`, Attr: "content"},
}

// priceAttrMarkers are substrings identifying price-bearing attributes.
var priceAttrMarkers = []string{"price", "prize", "cost"}

// scriptPricePattern matches quoted-key:value pairs in embedded script
// text where the key names a price and the value is a bounded numeric
// token: optional sign, up to six integer digits, optional one or two
// decimals.
var scriptPricePattern = regexp.MustCompile(
	`(?i)"[^"]*(?:price|cost|prize)[^"]*"\s*:\s*"?([+-]?[0-9]{1,6}(?:\.[0-9]{1,2})?)"?`)

// Scan extracts every raw price candidate from the document. The trusted
// pre-pass short-circuits the three general-purpose passes (attributes,
// script text, text nodes). Only candidates that parsed valid and
// positive are returned.
func Scan(doc *htmldoc.Document, loc Locale) []PriceInfo {
	if trusted := scanTrusted(doc, loc); len(trusted) > 0 {
		return trusted
	}

	var out []PriceInfo
	out = append(out, scanAttributes(doc, loc)...)
	out = append(out, scanScript(doc, loc)...)
	out = append(out, scanTextNodes(doc, loc)...)
	return out
}

func scanTrusted(doc *htmldoc.Document, loc Locale) []PriceInfo {
	var out []PriceInfo
	for _, q := range trustedPriceQueries {
		doc.Find(q.Selector).Each(func(_ int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				var raw string
				if q.Attr != "" {
					raw, _ = htmldoc.Attr(n, q.Attr)
				} else {
					raw = htmldoc.Text(n)
				}
				pv := ParsePrice(raw, loc)
				if !pv.Valid {
					continue
				}
				id, _ := doc.ID(n)
				info := PriceInfo{Price: pv, Source: SourceText, NodeID: id}
				if q.Attr != "" {
					info.Source = SourceAttribute
					info.AttributeName = q.Attr
				}
				out = append(out, info)
			}
		})
	}
	return out
}

func scanAttributes(doc *htmldoc.Document, loc Locale) []PriceInfo {
	var out []PriceInfo
	for id := 0; id < doc.Len(); id++ {
		n := doc.Node(id)
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if !attrNamesPrice(a.Key) {
				continue
			}
			pv := ParsePrice(a.Val, loc)
			if !pv.Valid {
				continue
			}
			out = append(out, PriceInfo{
				Price:         pv,
				Source:        SourceAttribute,
				AttributeName: a.Key,
				NodeID:        id,
			})
		}
	}
	return out
}

func attrNamesPrice(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range priceAttrMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func scanScript(doc *htmldoc.Document, loc Locale) []PriceInfo {
	var out []PriceInfo
	for _, m := range scriptPricePattern.FindAllStringSubmatch(doc.FullText(), -1) {
		// The pattern admits a sign. An explicit plus is still a valid
		// price; negatives fail the parse.
		pv := ParsePrice(strings.TrimPrefix(m[1], "+"), loc)
		if !pv.Valid {
			continue
		}
		out = append(out, PriceInfo{Price: pv, Source: SourceScript, NodeID: -1})
	}
	return out
}

func scanTextNodes(doc *htmldoc.Document, loc Locale) []PriceInfo {
	var out []PriceInfo
	for _, tn := range doc.TextNodes() {
		if len(tn.Raw()) <= 1 {
			continue
		}
		// Hyperlink text is navigation, not a displayed price.
		if p := doc.ParentElement(tn.ID); p != nil && strings.EqualFold(p.Data, "a") {
			continue
		}
		pv := ParsePrice(tn.Raw(), loc)
		if !pv.Valid {
			continue
		}
		out = append(out, PriceInfo{Price: pv, Source: SourceText, NodeID: tn.ID})
	}
	return out
}
