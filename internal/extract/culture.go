package extract

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/pricewatch/internal/htmldoc"
)

// metaQuery names a structural query and the attribute carrying its value.
// An empty Attr means the element's text content.
type metaQuery struct {
	Selector string
	Attr     string
}

// currencyMetaQueries carry currency metadata, checked in order.
var currencyMetaQueries = []metaQuery{
	{Selector: `[itemprop="priceCurrency"]`, Attr: "content"},
	{Selector: `meta[property="og:price:currency"]`, Attr: "content"},
	{Selector: `meta[property="product:price:currency"]`, Attr: "content"},
}

// languageQueries carry a document language declaration, checked in order.
var languageQueries = []metaQuery{
	{Selector: "html", Attr: "lang"},
	{Selector: "html", Attr: "xml:lang"},
}

// DetectCulture determines the document locale. Three strategies are tried
// in strict order, first success wins: currency metadata, currency voting
// over price-shaped text, and the declared document language. Returns nil
// when all three fail; the caller must treat that as a hard failure since
// the locale gates all numeric parsing.
func DetectCulture(doc *htmldoc.Document) *Locale {
	if loc := cultureFromMeta(doc); loc != nil {
		return loc
	}
	if loc := cultureFromPriceText(doc); loc != nil {
		return loc
	}
	return cultureFromLanguage(doc)
}

func cultureFromMeta(doc *htmldoc.Document) *Locale {
	for _, q := range currencyMetaQueries {
		value := queryValue(doc, q)
		if value == "" {
			continue
		}
		if loc, ok := ResolveCurrency(value); ok {
			return &loc
		}
	}
	return nil
}

// cultureFromPriceText votes: every price-shaped leaf text node nominates
// the locale of its embedded currency marker; the most frequent locale
// wins, ties broken by first encounter.
func cultureFromPriceText(doc *htmldoc.Document) *Locale {
	type vote struct {
		loc   Locale
		count int
		order int
	}
	votes := make(map[string]*vote)
	for _, tn := range doc.TextNodes() {
		text := Normalize(tn.Raw())
		if !priceShaped(text) {
			continue
		}
		loc, sym := ExtractCurrencySymbol(text)
		if sym == "" {
			continue
		}
		v, ok := votes[loc.Tag]
		if !ok {
			v = &vote{loc: loc, order: len(votes)}
			votes[loc.Tag] = v
		}
		v.count++
	}

	var best *vote
	for _, v := range votes {
		if best == nil || v.count > best.count ||
			(v.count == best.count && v.order < best.order) {
			best = v
		}
	}
	if best == nil {
		return nil
	}
	loc := best.loc
	return &loc
}

func cultureFromLanguage(doc *htmldoc.Document) *Locale {
	for _, q := range languageQueries {
		if loc, ok := LocaleByLanguage(queryValue(doc, q)); ok {
			return &loc
		}
	}
	// http-equiv values are matched case-insensitively by hand; attribute
	// value selectors are case-sensitive.
	var found *Locale
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "content-language") {
			return true
		}
		content, _ := s.Attr("content")
		if loc, ok := LocaleByLanguage(content); ok {
			found = &loc
			return false
		}
		return true
	})
	return found
}

// priceShaped reports whether normalized text looks like a displayed
// price: at least one digit and between one and ten non-digit,
// non-whitespace characters.
func priceShaped(text string) bool {
	digits, other := 0, 0
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case unicode.IsSpace(r):
		default:
			other++
		}
	}
	return digits >= 1 && other >= 1 && other <= 10
}

// queryValue resolves a metaQuery to its first non-empty value.
func queryValue(doc *htmldoc.Document, q metaQuery) string {
	sel := doc.Find(q.Selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if q.Attr != "" {
		v, _ := sel.Attr(q.Attr)
		return strings.TrimSpace(v)
	}
	return Normalize(sel.Text())
}
