// Package htmldoc wraps a parsed HTML tree with stable node IDs so that
// extraction heuristics can hold lookup-only handles to nodes and measure
// structural distance between them. A Document is read-only after Parse
// and is meant to be discarded after one extraction pass.
package htmldoc

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Document is an immutable view over one parsed HTML page.
type Document struct {
	gq      *goquery.Document
	nodes   []*html.Node
	ids     map[*html.Node]int
	parents []int
	depths  []int
}

// Parse reads and parses an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "htmldoc: parse")
	}
	d := &Document{
		gq:  goquery.NewDocumentFromNode(root),
		ids: make(map[*html.Node]int),
	}
	d.index(root, -1, 0)
	return d, nil
}

// ParseBytes parses an HTML document held in memory.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// index assigns depth-first IDs and records parent/depth per node.
func (d *Document) index(n *html.Node, parent, depth int) {
	id := len(d.nodes)
	d.nodes = append(d.nodes, n)
	d.ids[n] = id
	d.parents = append(d.parents, parent)
	d.depths = append(d.depths, depth)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.index(c, id, depth+1)
	}
}

// Len returns the number of indexed nodes.
func (d *Document) Len() int { return len(d.nodes) }

// Node returns the node with the given ID, or nil if out of range.
func (d *Document) Node(id int) *html.Node {
	if id < 0 || id >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

// ID returns the stable ID assigned to n.
func (d *Document) ID(n *html.Node) (int, bool) {
	id, ok := d.ids[n]
	return id, ok
}

// Find runs a CSS selector query over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.gq.Find(selector)
}

// TextNode is a non-blank text node with its stable ID.
type TextNode struct {
	ID   int
	Node *html.Node
}

// Raw returns the text node's data unmodified.
func (t TextNode) Raw() string { return t.Node.Data }

// TextNodes returns every non-blank text node in document order.
// Script and style contents are excluded; they are not visible text.
func (d *Document) TextNodes() []TextNode {
	var out []TextNode
	for id, n := range d.nodes {
		if n.Type != html.TextNode || strings.TrimSpace(n.Data) == "" {
			continue
		}
		if p := d.parentElement(id); p != nil {
			switch strings.ToLower(p.Data) {
			case "script", "style", "noscript":
				continue
			}
		}
		out = append(out, TextNode{ID: id, Node: n})
	}
	return out
}

// FullText concatenates every text node in the document, including script
// contents. The script-source price pass matches its pattern against this.
func (d *Document) FullText() string {
	var b strings.Builder
	for _, n := range d.nodes {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ParentElement returns the nearest enclosing element of the node with the
// given ID, or nil for the root.
func (d *Document) ParentElement(id int) *html.Node {
	return d.parentElement(id)
}

func (d *Document) parentElement(id int) *html.Node {
	for p := d.parents[id]; p >= 0; p = d.parents[p] {
		if d.nodes[p].Type == html.ElementNode {
			return d.nodes[p]
		}
	}
	return nil
}

// InsideTag reports whether the node with the given ID has an ancestor
// element with the given tag name.
func (d *Document) InsideTag(id int, tag string) bool {
	for p := d.parents[id]; p >= 0; p = d.parents[p] {
		n := d.nodes[p]
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			return true
		}
	}
	return false
}

// Distance returns the structural hop count between two nodes: the number
// of parent/child edges on the path through their lowest common ancestor.
// Returns -1 if either ID is out of range.
func (d *Document) Distance(a, b int) int {
	if a < 0 || b < 0 || a >= len(d.nodes) || b >= len(d.nodes) {
		return -1
	}
	hops := 0
	for d.depths[a] > d.depths[b] {
		a = d.parents[a]
		hops++
	}
	for d.depths[b] > d.depths[a] {
		b = d.parents[b]
		hops++
	}
	for a != b {
		a = d.parents[a]
		b = d.parents[b]
		hops += 2
	}
	return hops
}

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated descendant text of n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
