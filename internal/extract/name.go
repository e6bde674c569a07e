package extract

import (
	"strings"

	"github.com/sells-group/pricewatch/internal/htmldoc"
)

// maxNameCandidateLen bounds body text considered a product-name
// candidate. Longer runs are prose, not names.
const maxNameCandidateLen = 96

// titleQueries locate the page title, checked in order.
var titleQueries = []metaQuery{
	{Selector: `meta[property="og:title"]`, Attr: "content"},
	{Selector: "head title"},
}

// DetectName determines the product display name by correlating the page
// title with body text. Title tokens are tried longest-prefix-first; the
// longest prefix whose body occurrence count beats every shorter prefix
// tried so far wins. Fails only when no title exists at all; with no body
// correlation the full title is the name.
func DetectName(doc *htmldoc.Document) (name, title string, ok bool) {
	for _, q := range titleQueries {
		if v := queryValue(doc, q); v != "" {
			title = Normalize(v)
			break
		}
	}
	if title == "" {
		return "", "", false
	}

	counts := nameCandidateCounts(doc)
	tokens := strings.Fields(title)

	name = title
	best := 0
	for i := len(tokens); i >= 1; i-- {
		prefix := stripTrailingPunct(strings.Join(tokens[:i], " "))
		if prefix == "" {
			continue
		}
		if c := counts[strings.ToLower(prefix)]; c > best {
			best = c
			name = prefix
		}
	}
	return name, title, true
}

// nameCandidateCounts tallies body leaf text fragments eligible as name
// candidates, keyed by lowercased, trailing-punctuation-stripped text.
// Head text is excluded; the title would otherwise always match itself.
func nameCandidateCounts(doc *htmldoc.Document) map[string]int {
	counts := make(map[string]int)
	for _, tn := range doc.TextNodes() {
		if !doc.InsideTag(tn.ID, "body") {
			continue
		}
		text := stripTrailingPunct(Normalize(tn.Raw()))
		if text == "" || len(text) > maxNameCandidateLen {
			continue
		}
		counts[strings.ToLower(text)]++
	}
	return counts
}
