package htmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head>
<title>Sample</title>
<script>var price = {"amount": "9.99"};</script>
<style>.hidden { display: none; }</style>
</head><body>
<div id="a"><p>first</p></div>
<div id="b"><span>second</span></div>
</body></html>`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseBytes([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestParse_IDsAreStableAndDense(t *testing.T) {
	doc := mustParse(t, samplePage)

	require.Positive(t, doc.Len())
	for id := 0; id < doc.Len(); id++ {
		n := doc.Node(id)
		require.NotNil(t, n)
		got, ok := doc.ID(n)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
	assert.Nil(t, doc.Node(-1))
	assert.Nil(t, doc.Node(doc.Len()))
}

func TestFind(t *testing.T) {
	doc := mustParse(t, samplePage)

	assert.Equal(t, "Sample", doc.Find("title").Text())
	assert.Equal(t, 1, doc.Find("#a p").Length())
	assert.Equal(t, 0, doc.Find("#missing").Length())
}

func TestTextNodes_SkipsScriptStyleAndBlanks(t *testing.T) {
	doc := mustParse(t, samplePage)

	var texts []string
	for _, tn := range doc.TextNodes() {
		texts = append(texts, strings.TrimSpace(tn.Raw()))
	}
	assert.Contains(t, texts, "Sample")
	assert.Contains(t, texts, "first")
	assert.Contains(t, texts, "second")
	for _, s := range texts {
		assert.NotContains(t, s, "9.99")
		assert.NotContains(t, s, "display")
	}
}

func TestFullText_IncludesScript(t *testing.T) {
	doc := mustParse(t, samplePage)
	assert.Contains(t, doc.FullText(), `"amount": "9.99"`)
}

func TestParentElementAndInsideTag(t *testing.T) {
	doc := mustParse(t, samplePage)

	var firstID int
	for _, tn := range doc.TextNodes() {
		if strings.TrimSpace(tn.Raw()) == "first" {
			firstID = tn.ID
		}
	}
	p := doc.ParentElement(firstID)
	require.NotNil(t, p)
	assert.Equal(t, "p", p.Data)

	assert.True(t, doc.InsideTag(firstID, "div"))
	assert.True(t, doc.InsideTag(firstID, "BODY"))
	assert.False(t, doc.InsideTag(firstID, "span"))
}

func TestDistance(t *testing.T) {
	doc := mustParse(t, samplePage)

	var firstID, secondID int
	for _, tn := range doc.TextNodes() {
		switch strings.TrimSpace(tn.Raw()) {
		case "first":
			firstID = tn.ID
		case "second":
			secondID = tn.ID
		}
	}

	assert.Equal(t, 0, doc.Distance(firstID, firstID))

	// text -> p is one hop
	pID, ok := doc.ID(doc.ParentElement(firstID))
	require.True(t, ok)
	assert.Equal(t, 1, doc.Distance(firstID, pID))
	assert.Equal(t, 1, doc.Distance(pID, firstID))

	// first text and second text meet at body: text-p-div-body-div-span-text
	assert.Equal(t, 6, doc.Distance(firstID, secondID))

	assert.Equal(t, -1, doc.Distance(-1, firstID))
	assert.Equal(t, -1, doc.Distance(firstID, doc.Len()))
}

func TestAttrAndText(t *testing.T) {
	doc := mustParse(t, `<html><body><div id="x" data-price="12.34">hello <b>world</b></div></body></html>`)

	n := doc.Find("#x").Nodes[0]
	v, ok := Attr(n, "data-price")
	require.True(t, ok)
	assert.Equal(t, "12.34", v)

	v, ok = Attr(n, "DATA-PRICE")
	require.True(t, ok)
	assert.Equal(t, "12.34", v)

	_, ok = Attr(n, "missing")
	assert.False(t, ok)

	assert.Equal(t, "hello world", Text(n))
}
