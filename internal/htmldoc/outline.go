package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	outlineMaxDepth    = 7
	outlineMaxChildren = 10
	outlineMaxClasses  = 3
)

// Outline renders a depth- and breadth-bounded tree of the document's tag
// structure, a table of contents for the page. Elements are labelled
// tag#id.class1.class2.class3.
func (d *Document) Outline() string {
	body := d.Body()
	if body == nil {
		return "<body> tag not found."
	}
	var b strings.Builder
	outlineNode(&b, body, "", 0)
	return b.String()
}

func outlineNode(b *strings.Builder, n *html.Node, indent string, depth int) {
	label := n.Data
	if id, ok := Attr(n, "id"); ok {
		label += "#" + id
	}
	if classes := Classes(n); len(classes) > 0 {
		if len(classes) > outlineMaxClasses {
			classes = classes[:outlineMaxClasses]
		}
		label += "." + strings.Join(classes, ".")
	}

	b.WriteString(indent + "<" + label + ">\n")

	if depth > outlineMaxDepth {
		b.WriteString(indent + "  [...max depth reached...]\n")
		return
	}

	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if count > outlineMaxChildren {
			b.WriteString(indent + "  [...and more...]\n")
			break
		}
		outlineNode(b, c, indent+"  ", depth+1)
		count++
	}
}
