// Package extract reduces a fetched page to the high-relevance excerpt the
// generation oracle sees, and widens that excerpt when attempts fail.
package extract

import (
	"strings"

	"golang.org/x/net/html"

	"scrapegen/internal/domain"
	"scrapegen/internal/htmldoc"
)

const (
	// MaxExcerptLen is the hard cap on any excerpt handed to the oracle.
	MaxExcerptLen = 75000

	// rawFallbackLen is the slice of raw/body HTML used when the
	// heuristics find nothing useful.
	rawFallbackLen = 15000

	perSelectorCap  = 20
	contextBlockCap = 30

	truncationMarker = "\n\n... (HTML truncated)"
)

var strippedTags = []string{"script", "style", "header", "footer", "nav", "aside"}

// mainSelectors locate the page's main content region, tried in priority
// order; first match wins.
var mainSelectors = []htmldoc.Selector{
	{Tag: "main"},
	{Attr: "role", AttrVal: "main"},
	{Tag: "article"},
	{ID: "content"},
	{ID: "main"},
	{Class: "content"},
	{Class: "main"},
}

type keywordRule struct {
	word string
	sels []htmldoc.Selector
}

// keywordRules maps objective words to the structural selectors they
// activate. An ordered slice rather than a map: excerpt assembly must be
// deterministic for identical input.
var keywordRules = []keywordRule{
	// layout words
	{"card", []htmldoc.Selector{{Attr: "class", AttrVal: "card", Substring: true}}},
	{"container", []htmldoc.Selector{{Attr: "class", AttrVal: "container", Substring: true}}},
	{"wrapper", []htmldoc.Selector{{Attr: "class", AttrVal: "wrapper", Substring: true}}},
	{"section", []htmldoc.Selector{{Tag: "section"}}},
	{"block", []htmldoc.Selector{{Attr: "class", AttrVal: "block", Substring: true}}},
	{"grid", []htmldoc.Selector{{Attr: "class", AttrVal: "grid", Substring: true}}},
	{"list", []htmldoc.Selector{{Tag: "ul"}, {Tag: "ol"}}},
	{"item", []htmldoc.Selector{{Tag: "li"}, {Attr: "class", AttrVal: "item", Substring: true}}},
	{"row", []htmldoc.Selector{{Tag: "tr"}, {Attr: "class", AttrVal: "row", Substring: true}}},
	{"column", []htmldoc.Selector{{Tag: "td"}, {Tag: "th"}, {Attr: "class", AttrVal: "col", Substring: true}}},
	// content words
	{"table", []htmldoc.Selector{{Tag: "table"}}},
	{"article", []htmldoc.Selector{{Tag: "article"}}},
	{"post", []htmldoc.Selector{{Attr: "class", AttrVal: "post", Substring: true}}},
	{"comment", []htmldoc.Selector{{Attr: "class", AttrVal: "comment", Substring: true}}},
	{"review", []htmldoc.Selector{{Attr: "class", AttrVal: "review", Substring: true}, {Attr: "itemtype", AttrVal: "Review", Substring: true}}},
	{"title", []htmldoc.Selector{{Attr: "class", AttrVal: "title", Substring: true}, {Class: "title"}}},
	{"header", []htmldoc.Selector{{Tag: "h1"}, {Tag: "h2"}, {Tag: "h3"}, {Attr: "class", AttrVal: "header", Substring: true}}},
	{"headline", []htmldoc.Selector{{Tag: "h1"}, {Tag: "h2"}, {Tag: "h3"}}},
	{"description", []htmldoc.Selector{{Attr: "class", AttrVal: "description", Substring: true}, {Attr: "class", AttrVal: "desc", Substring: true}}},
	{"summary", []htmldoc.Selector{{Attr: "class", AttrVal: "summary", Substring: true}}},
	{"author", []htmldoc.Selector{{Attr: "class", AttrVal: "author", Substring: true}, {Attr: "rel", AttrVal: "author"}}},
	{"user", []htmldoc.Selector{{Attr: "class", AttrVal: "user", Substring: true}, {Attr: "class", AttrVal: "profile", Substring: true}}},
	{"name", []htmldoc.Selector{{Attr: "class", AttrVal: "name", Substring: true}}},
	{"date", []htmldoc.Selector{{Attr: "class", AttrVal: "date", Substring: true}, {Attr: "class", AttrVal: "time", Substring: true}, {Tag: "time"}}},
	{"timestamp", []htmldoc.Selector{{Tag: "time"}}},
	{"product", []htmldoc.Selector{{Attr: "class", AttrVal: "product", Substring: true}, {Attr: "itemtype", AttrVal: "Product", Substring: true}}},
	{"price", []htmldoc.Selector{{Attr: "class", AttrVal: "price", Substring: true}}},
	{"rating", []htmldoc.Selector{{Attr: "class", AttrVal: "rating", Substring: true}}},
	{"image", []htmldoc.Selector{{Tag: "img"}}},
	{"picture", []htmldoc.Selector{{Tag: "picture"}}},
	{"photo", []htmldoc.Selector{{Tag: "img"}, {Tag: "figure"}}},
	{"gallery", []htmldoc.Selector{{Attr: "class", AttrVal: "gallery", Substring: true}}},
	{"link", []htmldoc.Selector{{Tag: "a"}}},
	{"url", []htmldoc.Selector{{Tag: "a", Attr: "href"}}},
	{"href", []htmldoc.Selector{{Tag: "a", Attr: "href"}}},
	{"text", []htmldoc.Selector{{Tag: "p"}}},
	{"content", []htmldoc.Selector{{Tag: "p"}}},
}

// Reduce projects a full document down to a bounded excerpt relevant to the
// objective. It never fails: any internal problem falls back to the first
// 15,000 characters of the raw input.
func Reduce(raw, objective string) (excerpt domain.Excerpt) {
	defer func() {
		if r := recover(); r != nil {
			excerpt = clamp(head(raw, rawFallbackLen), domain.SourceRelevance)
		}
	}()

	doc, err := htmldoc.Parse(raw)
	if err != nil {
		return clamp(head(raw, rawFallbackLen), domain.SourceRelevance)
	}

	doc.StripTags(strippedTags...)

	var mainContent *html.Node
	for _, sel := range mainSelectors {
		if n := htmldoc.FindFirst(doc.Root(), sel); n != nil {
			mainContent = n
			break
		}
	}

	scope := mainContent
	if scope == nil {
		scope = doc.Body()
	}
	if scope == nil {
		scope = doc.Root()
	}

	relevant := matchKeywordSelectors(scope, objective)

	var parts []string
	if t := doc.TitleTag(); t != "" {
		parts = append(parts, t)
	}
	if m := doc.MetaDescriptionTag(); m != "" {
		parts = append(parts, m)
	}

	if mainContent != nil && len(relevant) == 0 {
		// Nothing keyword-specific matched; the main region is the context.
		parts = append(parts, htmldoc.Render(mainContent))
	} else {
		for _, el := range contextBlocks(relevant) {
			parts = append(parts, htmldoc.Render(el))
		}
	}

	// Last resort: almost nothing assembled, take the start of the body.
	if len(parts) <= 2 {
		if body := doc.Body(); body != nil {
			parts = append(parts, head(htmldoc.Render(body), rawFallbackLen))
		}
	}

	return clamp(strings.Join(parts, "\n\n"), domain.SourceRelevance)
}

// matchKeywordSelectors unions the selector sets of every keyword present
// in the objective and collects up to perSelectorCap matches per selector.
func matchKeywordSelectors(scope *html.Node, objective string) []*html.Node {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(objective)) {
		words[w] = true
	}

	seen := make(map[htmldoc.Selector]bool)
	var active []htmldoc.Selector
	for _, rule := range keywordRules {
		if !words[rule.word] {
			continue
		}
		for _, sel := range rule.sels {
			if !seen[sel] {
				seen[sel] = true
				active = append(active, sel)
			}
		}
	}

	var matched []*html.Node
	for _, sel := range active {
		matched = append(matched, htmldoc.FindAll(scope, sel, perSelectorCap)...)
	}
	return matched
}

// contextBlocks maps each matched element to its grandparent (else parent)
// for surrounding context, skips wrapper ancestors, deduplicates while
// preserving first-seen order, and caps the total.
func contextBlocks(matched []*html.Node) []*html.Node {
	var contextual []*html.Node
	for _, el := range dedupNodes(matched) {
		parent := el.Parent
		var grandparent *html.Node
		if parent != nil {
			grandparent = parent.Parent
		}
		switch {
		case grandparent != nil && !htmldoc.IsWrapper(grandparent):
			contextual = append(contextual, grandparent)
		case parent != nil && !htmldoc.IsWrapper(parent):
			contextual = append(contextual, parent)
		}
	}

	unique := dedupNodes(contextual)
	if len(unique) > contextBlockCap {
		unique = unique[:contextBlockCap]
	}
	return unique
}

func dedupNodes(nodes []*html.Node) []*html.Node {
	seen := make(map[*html.Node]bool, len(nodes))
	out := nodes[:0:0]
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clamp(s string, src domain.ExcerptSource) domain.Excerpt {
	if len(s) > MaxExcerptLen {
		return domain.Excerpt{
			HTML:      s[:MaxExcerptLen] + truncationMarker,
			Source:    src,
			Truncated: true,
		}
	}
	return domain.Excerpt{HTML: s, Source: src}
}
