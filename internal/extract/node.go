package extract

import "strings"

// Node is a structured snapshot of one rendered element: its tag, attributes,
// visible text and element children. Snapshots are taken once per element so
// parsing can run outside the rendering engine.
type Node struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text"`
	Children []Node            `json:"children,omitempty"`
}

// Attr returns the named attribute, or "" when absent.
func (n Node) Attr(name string) string {
	return n.Attrs[name]
}

// Find returns the first descendant (depth-first, excluding n itself) that
// satisfies match.
func (n Node) Find(match func(Node) bool) (Node, bool) {
	for _, c := range n.Children {
		if match(c) {
			return c, true
		}
		if found, ok := c.Find(match); ok {
			return found, true
		}
	}
	return Node{}, false
}

// HasStyle reports whether any descendant carries an inline style containing
// one of the given declarations.
func (n Node) HasStyle(decls ...string) bool {
	_, ok := n.Find(func(c Node) bool {
		style := c.Attr("style")
		if style == "" {
			return false
		}
		for _, d := range decls {
			if strings.Contains(style, d) {
				return true
			}
		}
		return false
	})
	return ok
}
