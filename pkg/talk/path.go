package talk

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Path is a compiled XPath expression that selects nodes or values of a
// document.
type Path struct {
	expr     string
	absolute bool
	compiled *xpath.Expr
}

var compiled sync.Map // expr -> *Path

// MustCompile is like Compile but panics on error. Compiled paths are
// cached, so constant expressions are parsed once.
func MustCompile(expr string) *Path {
	if p, ok := compiled.Load(expr); ok {
		return p.(*Path)
	}
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	compiled.Store(expr, p)
	return p
}

// Compile parses an XPath 1.0 expression. It must select nodes: element
// steps, optionally ending in text() or @attr.
func Compile(expr string) (*Path, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, errors.New("empty path")
	}
	c, err := xpath.Compile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("path %q: %w", expr, err)
	}
	return &Path{expr: expr, absolute: strings.HasPrefix(trimmed, "/"), compiled: c}, nil
}

// String returns the source expression.
func (p *Path) String() string {
	return p.expr
}

// view mirrors a Node tree as an xmlquery document so that xpath can walk
// it, remembering which Node each element came from.
type view struct {
	doc   *xmlquery.Node
	top   *xmlquery.Node
	nodes map[*xmlquery.Node]*Node
}

func newView(root *Node) *view {
	v := &view{
		doc:   &xmlquery.Node{Type: xmlquery.DocumentNode},
		nodes: make(map[*xmlquery.Node]*Node),
	}
	v.top = v.mirror(root)
	xmlquery.AddChild(v.doc, v.top)
	return v
}

func (v *view) mirror(n *Node) *xmlquery.Node {
	el := &xmlquery.Node{Type: xmlquery.ElementNode, Data: n.Name}
	v.nodes[el] = n
	for _, a := range n.Attrs {
		xmlquery.AddAttr(el, a.Name, a.Value)
	}
	// Leaves always get a text node, so text() of an empty element is "".
	if n.Text != "" || len(n.Children) == 0 {
		xmlquery.AddChild(el, &xmlquery.Node{Type: xmlquery.TextNode, Data: n.Text})
	}
	for _, c := range n.Children {
		xmlquery.AddChild(el, v.mirror(c))
	}
	return el
}

// match is one selected item: an element, or a text/attribute value.
type match struct {
	node  *Node
	value string
}

func (p *Path) eval(root *Node) []match {
	if root == nil {
		return nil
	}
	v := newView(root)
	start := v.top
	if p.absolute {
		start = v.doc
	}
	var out []match
	iter := p.compiled.Select(xmlquery.CreateXPathNavigator(start))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*xmlquery.NodeNavigator)
		if !ok {
			continue
		}
		switch nav.NodeType() {
		case xpath.ElementNode:
			if n, ok := v.nodes[nav.Current()]; ok {
				out = append(out, match{node: n, value: n.Text})
			}
		case xpath.TextNode, xpath.AttributeNode:
			out = append(out, match{value: nav.Value()})
		}
	}
	return out
}

// Select returns the elements the path selects, in document order.
// Absolute paths start above root, so "/talk" selects a <talk> root;
// relative ones start at root itself.
func (p *Path) Select(root *Node) []*Node {
	var nodes []*Node
	for _, m := range p.eval(root) {
		if m.node != nil {
			nodes = append(nodes, m.node)
		}
	}
	return nodes
}

// Strings returns text() or attribute values. For element results it
// returns each element's own text.
func (p *Path) Strings(root *Node) []string {
	var values []string
	for _, m := range p.eval(root) {
		values = append(values, m.value)
	}
	return values
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
