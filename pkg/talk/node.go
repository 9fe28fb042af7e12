// Package talk holds the per-job state document.
//
// A talk is an XML-like tree rooted at <talk>. It is read as a snapshot and
// changed only through Directives, a typed edit set applied atomically
// together with an audit message. Queries are XPath 1.0, evaluated with
// antchfx/xpath over an xmlquery mirror of the tree:
//
//	/talk/daemon[not(ended)]
//	/talk/shell[@id='a1b2']/host/text()
//	/talk/merge-request-git/@id
package talk

// RootName is the name of every document's root element.
const RootName = "talk"

// Attr is a single attribute. Attribute order is preserved.
type Attr struct {
	Name  string
	Value string
}

// Node is an element of the document.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// NewDocument returns an empty <talk name="..."> document.
func NewDocument(name string) *Node {
	root := &Node{Name: RootName}
	if name != "" {
		root.SetAttr("name", name)
	}
	return root
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the text of the first child with the given name.
func (n *Node) ChildText(name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	return c.Text, true
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Name: n.Name, Text: n.Text}
	if len(n.Attrs) > 0 {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Nodes selects nodes by path. It panics on a malformed expression, like
// regexp.MustCompile; use Compile for expressions that come from input.
func (n *Node) Nodes(expr string) []*Node {
	return MustCompile(expr).Select(n)
}

// Exists reports whether the path selects anything.
func (n *Node) Exists(expr string) bool {
	return len(n.Nodes(expr)) > 0
}

// Strings selects text() or @attr values by path.
func (n *Node) Strings(expr string) []string {
	return MustCompile(expr).Strings(n)
}

// Value returns the first value selected by Strings and whether there was one.
func (n *Node) Value(expr string) (string, bool) {
	values := n.Strings(expr)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}
