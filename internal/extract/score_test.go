package extract

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricewatch/internal/htmldoc"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func textNodeID(t *testing.T, doc *htmldoc.Document, substr string) int {
	t.Helper()
	for _, tn := range doc.TextNodes() {
		if strings.Contains(tn.Raw(), substr) {
			return tn.ID
		}
	}
	t.Fatalf("no text node containing %q", substr)
	return -1
}

func TestScoreGroupBranches(t *testing.T) {
	attr := PriceInfo{Source: SourceAttribute}
	js := PriceInfo{Source: SourceScript}
	text := func(id int, symbol string) PriceInfo {
		return PriceInfo{Source: SourceText, NodeID: id, Price: PriceValue{CurrencySymbol: symbol, Valid: true}}
	}

	cases := []struct {
		name      string
		group     PriceGroup
		distances map[int]int
		want      int
	}{
		{
			"attribute corroborated by text",
			PriceGroup{Candidates: []PriceInfo{attr, text(5, "")}},
			map[int]int{5: 1},
			14, // 2 + 2 + 10
		},
		{
			"lone attribute",
			PriceGroup{Candidates: []PriceInfo{attr}},
			nil,
			-25, // 1 - 21 - 5
		},
		{
			"lone script",
			PriceGroup{Candidates: []PriceInfo{js}},
			nil,
			-25,
		},
		{
			"script plus distant text",
			PriceGroup{Candidates: []PriceInfo{js, text(9, "")}},
			nil,
			-5, // 2 + 3 - 10
		},
		{
			"script plus distant text with symbol",
			PriceGroup{Candidates: []PriceInfo{js, text(9, "€")}},
			nil,
			10,
		},
		{
			"text adjacent to name with symbol",
			PriceGroup{Candidates: []PriceInfo{text(3, "$")}},
			map[int]int{3: 1},
			21, // 1 - 5 + 10 + 15
		},
		{
			"text far from name",
			PriceGroup{Candidates: []PriceInfo{text(3, "")}},
			map[int]int{3: 14},
			-24, // 1 - 5 - 20
		},
		{
			"text at radius edge",
			PriceGroup{Candidates: []PriceInfo{text(3, "")}},
			map[int]int{3: 7},
			0, // 1 - 5 + 4
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, scoreGroup(c.group, c.distances))
		})
	}
}

func TestScoreGroupsOrdering(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)
	candidates := []PriceInfo{
		{Source: SourceScript, NodeID: -1, Price: PriceValue{Amount: dec("5"), Valid: true}},
		{Source: SourceScript, NodeID: -1, Price: PriceValue{Amount: dec("5"), Valid: true}},
		{Source: SourceAttribute, Price: PriceValue{Amount: dec("7"), Valid: true}},
		{Source: SourceScript, NodeID: -1, Price: PriceValue{Amount: dec("7"), Valid: true}},
	}
	groups := ScoreGroups(doc, candidates, "")
	require.Len(t, groups, 2)
	assert.Equal(t, "7", groups[0].Amount.String())
	assert.Equal(t, 2, groups[0].Score) // 2 + 2 + 3 - 5
	assert.Equal(t, "5", groups[1].Amount.String())
	assert.Equal(t, -25, groups[1].Score) // 2 - 22 - 5
}

func TestScoreGroupsTieKeepsEncounterOrder(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)
	candidates := []PriceInfo{
		{Source: SourceText, NodeID: -1, Price: PriceValue{Amount: dec("3"), Valid: true}},
		{Source: SourceText, NodeID: -1, Price: PriceValue{Amount: dec("4"), Valid: true}},
	}
	groups := ScoreGroups(doc, candidates, "")
	require.Len(t, groups, 2)
	assert.Equal(t, "3", groups[0].Amount.String())
	assert.Equal(t, "4", groups[1].Amount.String())
	assert.Equal(t, groups[0].Score, groups[1].Score)
}

func TestScoreGroupsEmpty(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)
	assert.Nil(t, ScoreGroups(doc, nil, "Gadget"))
}

func TestScoreGroupsNameProximityWinsOverAttribute(t *testing.T) {
	page := `<html><body>
		<h1>Gadget</h1>
		<p>$24.50</p>
		<div data-price="99.00">was</div>
	</body></html>`
	doc := parseDoc(t, page)
	loc := mustLocale(t, "en-US")
	groups := ScoreGroups(doc, Scan(doc, loc), "Gadget")
	require.Len(t, groups, 2)
	assert.Equal(t, "24.5", groups[0].Amount.String())
	assert.Equal(t, 18, groups[0].Score) // 1 - 5 + 7 + 15
	assert.Equal(t, "99", groups[1].Amount.String())
	assert.Equal(t, -25, groups[1].Score)
}

func TestNameDistances(t *testing.T) {
	page := `<html><body><h1>Gadget</h1><p>$5.00</p><p>Gadgetron</p></body></html>`
	doc := parseDoc(t, page)
	priceID := textNodeID(t, doc, "$5.00")
	candidates := []PriceInfo{{Source: SourceText, NodeID: priceID}}

	got := nameDistances(doc, candidates, "Gadget")
	require.Contains(t, got, priceID)
	// price text -> p -> body -> h1 -> name text
	assert.Equal(t, 4, got[priceID])

	assert.Empty(t, nameDistances(doc, candidates, "Widget"))
	assert.Empty(t, nameDistances(doc, candidates, ""))
}
