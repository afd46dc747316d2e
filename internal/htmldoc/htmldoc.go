// Package htmldoc is a small traversal layer over golang.org/x/net/html.
// The extraction logic depends on this package only, never on the parser's
// node type directly, so the parser can be swapped without touching it.
package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
)

// Document wraps a parsed HTML tree.
type Document struct {
	root *html.Node
}

// Parse parses raw HTML. The x/net/html parser recovers from malformed
// input, so errors are rare (reader failures only), but callers are
// expected to fall back rather than propagate them.
func Parse(raw string) (*Document, error) {
	n, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &Document{root: n}, nil
}

func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element, or nil if the document has none.
func (d *Document) Body() *html.Node {
	return FindFirst(d.root, Selector{Tag: "body"})
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node {
	return FindFirst(d.root, Selector{Tag: "head"})
}

// TitleTag returns the rendered <title> element, or "" when absent or empty.
func (d *Document) TitleTag() string {
	head := d.Head()
	if head == nil {
		return ""
	}
	title := FindFirst(head, Selector{Tag: "title"})
	if title == nil || strings.TrimSpace(Text(title)) == "" {
		return ""
	}
	return Render(title)
}

// MetaDescriptionTag returns the rendered <meta name="description"> element,
// or "" when absent or without content.
func (d *Document) MetaDescriptionTag() string {
	head := d.Head()
	if head == nil {
		return ""
	}
	meta := FindFirst(head, Selector{Tag: "meta", Attr: "name", AttrVal: "description"})
	if meta == nil {
		return ""
	}
	if v, ok := Attr(meta, "content"); !ok || v == "" {
		return ""
	}
	return Render(meta)
}

// Selector is a structural element predicate, standing in for the handful
// of CSS forms the extraction heuristics need: tag, #id, .class, [attr],
// [attr="v"] and [attr*="v"]. Zero fields match anything.
type Selector struct {
	Tag       string // element name, "" = any
	ID        string // id attribute, exact
	Class     string // class token, exact
	Attr      string // attribute that must be present
	AttrVal   string // required attribute value (with Attr)
	Substring bool   // AttrVal matches as substring instead of exactly
}

// Matches reports whether n is an element satisfying the selector.
func (s Selector) Matches(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if s.Tag != "" && n.Data != s.Tag {
		return false
	}
	if s.ID != "" {
		if v, ok := Attr(n, "id"); !ok || v != s.ID {
			return false
		}
	}
	if s.Class != "" && !hasClass(n, s.Class) {
		return false
	}
	if s.Attr != "" {
		v, ok := Attr(n, s.Attr)
		if !ok {
			return false
		}
		if s.AttrVal != "" {
			if s.Substring {
				if !strings.Contains(v, s.AttrVal) {
					return false
				}
			} else if v != s.AttrVal {
				return false
			}
		}
	}
	return true
}

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Classes returns the class tokens of n in attribute order.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// FindAll collects descendants of scope matching sel, in document order.
// scope itself is never included. limit <= 0 means unbounded.
func FindAll(scope *html.Node, sel Selector, limit int) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if sel.Matches(c) {
				out = append(out, c)
				if limit > 0 && len(out) >= limit {
					return false
				}
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(scope)
	return out
}

// FindFirst returns the first descendant of scope matching sel, or nil.
func FindFirst(scope *html.Node, sel Selector) *html.Node {
	found := FindAll(scope, sel, 1)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// FirstContentElement returns the first element under root that is not a
// structural wrapper (html, head, body), or nil.
func FirstContentElement(root *html.Node) *html.Node {
	var found *html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				switch c.Data {
				case "html", "head", "body":
				default:
					found = c
					return false
				}
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
	return found
}

// FindTextNode returns the first text node under root whose data satisfies
// match, in document order.
func FindTextNode(root *html.Node, match func(string) bool) *html.Node {
	var found *html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && match(c.Data) {
				found = c
				return false
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
	return found
}

// Text returns the visible text of the subtree: text nodes trimmed and
// joined with single spaces, empty pieces dropped.
func Text(n *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// Render serializes the subtree rooted at n back to HTML.
func Render(n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}

// Detach removes n from its parent. No-op for parentless nodes.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// StripTags removes every element with one of the given names from the
// document, subtrees included.
func (d *Document) StripTags(names ...string) {
	want := make(map[string]bool, len(names))
	for _, t := range names {
		want[t] = true
	}
	var doomed []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && want[c.Data] {
				doomed = append(doomed, c)
				continue
			}
			walk(c)
		}
	}
	walk(d.root)
	for _, n := range doomed {
		Detach(n)
	}
}

// IsWrapper reports whether n is the body or html element (or nil), the
// ancestors the context heuristics refuse to climb past.
func IsWrapper(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return true
	}
	return n.Data == "body" || n.Data == "html"
}
