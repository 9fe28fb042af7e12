package talk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCursor is returned when an edit has nothing to act on, for
	// example Set after an XPath that matched no node.
	ErrNoCursor = errors.New("directive has no target node")
	// ErrRoot is returned when an edit would move above or remove the root.
	ErrRoot = errors.New("directive cannot leave or remove the root")
)

// Directives is an ordered edit set. The cursor starts at the root; each
// directive moves it or edits the nodes under it. Apply runs the whole set
// on a copy, so a failing directive leaves the document unchanged.
//
//	new(Directives).
//		XPath("/talk/merge-request-git").Add("success").Set("true").
//		XPath("/talk/daemon").Remove()
type Directives struct {
	ops []directive
}

type directive struct {
	kind  string
	name  string
	value string
	path  *Path
}

// XPath moves the cursor to the nodes the path selects. The expression must
// be valid; it panics otherwise, as the expressions are program constants.
func (d *Directives) XPath(expr string) *Directives {
	d.ops = append(d.ops, directive{kind: "xpath", value: expr, path: MustCompile(expr)})
	return d
}

// Add appends a child to each cursor node and moves the cursor to them.
func (d *Directives) Add(name string) *Directives {
	d.ops = append(d.ops, directive{kind: "add", name: name})
	return d
}

// AddIf is Add unless the cursor nodes already have such a child, in which
// case the cursor moves to the existing children.
func (d *Directives) AddIf(name string) *Directives {
	d.ops = append(d.ops, directive{kind: "addif", name: name})
	return d
}

// Set replaces the text of the cursor nodes.
func (d *Directives) Set(text string) *Directives {
	d.ops = append(d.ops, directive{kind: "set", value: text})
	return d
}

// Attr sets an attribute on the cursor nodes.
func (d *Directives) Attr(name, value string) *Directives {
	d.ops = append(d.ops, directive{kind: "attr", name: name, value: value})
	return d
}

// Up moves the cursor to the parents of the cursor nodes.
func (d *Directives) Up() *Directives {
	d.ops = append(d.ops, directive{kind: "up"})
	return d
}

// Remove deletes the cursor nodes; the cursor moves to their parents.
func (d *Directives) Remove() *Directives {
	d.ops = append(d.ops, directive{kind: "remove"})
	return d
}

// Append adds all directives of other.
func (d *Directives) Append(other *Directives) *Directives {
	if other != nil {
		d.ops = append(d.ops, other.ops...)
	}
	return d
}

// Len returns the number of directives.
func (d *Directives) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ops)
}

// String renders the edit set in a compact, readable form for audit logs.
func (d *Directives) String() string {
	if d == nil {
		return ""
	}
	parts := make([]string, 0, len(d.ops))
	for _, op := range d.ops {
		switch op.kind {
		case "xpath", "set":
			parts = append(parts, fmt.Sprintf("%s(%q)", op.kind, op.value))
		case "add", "addif":
			parts = append(parts, fmt.Sprintf("%s(%q)", op.kind, op.name))
		case "attr":
			parts = append(parts, fmt.Sprintf("attr(%q, %q)", op.name, op.value))
		default:
			parts = append(parts, op.kind+"()")
		}
	}
	return strings.Join(parts, ".")
}

// Apply returns a modified copy of root. root itself is never changed.
func (d *Directives) Apply(root *Node) (*Node, error) {
	if root == nil {
		return nil, fmt.Errorf("apply directives: %w", ErrNoCursor)
	}
	doc := root.Clone()
	parents := make(map[*Node]*Node)
	indexParents(doc, parents)
	cursor := []*Node{doc}

	for i, op := range d.ops {
		var err error
		cursor, err = op.apply(doc, parents, cursor)
		if err != nil {
			return nil, fmt.Errorf("directive #%d %s: %w", i+1, op.kind, err)
		}
	}
	return doc, nil
}

func indexParents(n *Node, parents map[*Node]*Node) {
	for _, c := range n.Children {
		parents[c] = n
		indexParents(c, parents)
	}
}

func (op directive) apply(doc *Node, parents map[*Node]*Node, cursor []*Node) ([]*Node, error) {
	if op.kind == "xpath" {
		if op.path.absolute {
			return op.path.Select(doc), nil
		}
		var next []*Node
		for _, n := range cursor {
			next = append(next, op.path.Select(n)...)
		}
		return next, nil
	}
	if len(cursor) == 0 {
		return nil, ErrNoCursor
	}

	switch op.kind {
	case "add", "addif":
		if !validName(op.name) {
			return nil, fmt.Errorf("invalid element name %q", op.name)
		}
		next := make([]*Node, 0, len(cursor))
		for _, n := range cursor {
			if op.kind == "addif" {
				if existing := n.Child(op.name); existing != nil {
					next = append(next, existing)
					continue
				}
			}
			child := &Node{Name: op.name}
			n.Children = append(n.Children, child)
			parents[child] = n
			next = append(next, child)
		}
		return next, nil
	case "set":
		for _, n := range cursor {
			n.Text = op.value
		}
		return cursor, nil
	case "attr":
		if !validName(op.name) {
			return nil, fmt.Errorf("invalid attribute name %q", op.name)
		}
		for _, n := range cursor {
			n.SetAttr(op.name, op.value)
		}
		return cursor, nil
	case "up":
		return uniqueParents(cursor, parents)
	case "remove":
		next, err := uniqueParents(cursor, parents)
		if err != nil {
			return nil, err
		}
		for _, n := range cursor {
			p := parents[n]
			for i, c := range p.Children {
				if c == n {
					p.Children = append(p.Children[:i], p.Children[i+1:]...)
					break
				}
			}
			delete(parents, n)
		}
		return next, nil
	default:
		return nil, fmt.Errorf("unknown directive %q", op.kind)
	}
}

func uniqueParents(cursor []*Node, parents map[*Node]*Node) ([]*Node, error) {
	seen := make(map[*Node]bool, len(cursor))
	var out []*Node
	for _, n := range cursor {
		p, ok := parents[n]
		if !ok {
			return nil, ErrRoot
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
