package htmldoc

import (
	"strings"
	"testing"
)

const samplePage = `<html><head>
<title>Widget Shop</title>
<meta name="description" content="Cheap widgets">
</head><body>
<div id="content" class="page main">
  <ul>
    <li class="item">one</li>
    <li class="item">two</li>
  </ul>
  <p>  spaced   text </p>
</div>
</body></html>`

func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	d, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestSelectorMatches(t *testing.T) {
	d := mustParse(t, samplePage)

	tests := []struct {
		name string
		sel  Selector
		want int
	}{
		{"by tag", Selector{Tag: "li"}, 2},
		{"by id", Selector{ID: "content"}, 1},
		{"by class token", Selector{Class: "main"}, 1},
		{"by attr substring", Selector{Attr: "class", AttrVal: "ite", Substring: true}, 2},
		{"by attr exact no match", Selector{Attr: "class", AttrVal: "ite"}, 0},
		{"tag plus class", Selector{Tag: "li", Class: "item"}, 2},
		{"absent id", Selector{ID: "nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAll(d.Root(), tt.sel, 0)
			if len(got) != tt.want {
				t.Fatalf("expected %d matches, got %d", tt.want, len(got))
			}
		})
	}
}

func TestFindAllRespectsLimitAndOrder(t *testing.T) {
	d := mustParse(t, samplePage)

	items := FindAll(d.Root(), Selector{Tag: "li"}, 1)
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	if got := Text(items[0]); got != "one" {
		t.Fatalf("expected first item in document order, got %q", got)
	}
}

func TestTitleAndMetaTags(t *testing.T) {
	d := mustParse(t, samplePage)

	if got := d.TitleTag(); !strings.Contains(got, "Widget Shop") {
		t.Fatalf("unexpected title tag: %q", got)
	}
	if got := d.MetaDescriptionTag(); !strings.Contains(got, "Cheap widgets") {
		t.Fatalf("unexpected meta tag: %q", got)
	}

	empty := mustParse(t, "<html><head><title>  </title></head><body></body></html>")
	if got := empty.TitleTag(); got != "" {
		t.Fatalf("expected empty title to be dropped, got %q", got)
	}
	if got := empty.MetaDescriptionTag(); got != "" {
		t.Fatalf("expected missing meta to be empty, got %q", got)
	}
}

func TestTextNormalizesWhitespace(t *testing.T) {
	d := mustParse(t, samplePage)

	p := FindFirst(d.Root(), Selector{Tag: "p"})
	if p == nil {
		t.Fatal("missing <p>")
	}
	if got := Text(p); got != "spaced text" {
		t.Fatalf("expected normalized text, got %q", got)
	}
}

func TestStripTags(t *testing.T) {
	d := mustParse(t, `<html><body><script>x()</script><nav>menu</nav><p>keep</p></body></html>`)

	d.StripTags("script", "nav")

	if FindFirst(d.Root(), Selector{Tag: "script"}) != nil {
		t.Fatal("script survived strip")
	}
	if FindFirst(d.Root(), Selector{Tag: "nav"}) != nil {
		t.Fatal("nav survived strip")
	}
	if FindFirst(d.Root(), Selector{Tag: "p"}) == nil {
		t.Fatal("p should survive strip")
	}
}

func TestFirstContentElementSkipsWrappers(t *testing.T) {
	d := mustParse(t, `<html><head></head><body><div class="x">hi</div></body></html>`)

	el := FirstContentElement(d.Root())
	if el == nil || el.Data != "div" {
		t.Fatalf("expected div, got %+v", el)
	}

	empty := mustParse(t, `<html><head></head><body></body></html>`)
	if el := FirstContentElement(empty.Root()); el != nil {
		t.Fatalf("expected nil for empty body, got %v", el.Data)
	}
}

func TestFindTextNode(t *testing.T) {
	d := mustParse(t, samplePage)

	n := FindTextNode(d.Root(), func(s string) bool { return strings.Contains(s, "two") })
	if n == nil {
		t.Fatal("expected to find text node")
	}
	if n.Parent == nil || n.Parent.Data != "li" {
		t.Fatalf("expected parent li, got %+v", n.Parent)
	}
}

func TestOutlineLabelsAndBounds(t *testing.T) {
	d := mustParse(t, `<html><body><div id="app" class="a b c d"><span>x</span></div></body></html>`)

	out := d.Outline()
	if !strings.Contains(out, "<div#app.a.b.c>") {
		t.Fatalf("expected labelled div with at most three classes, got:\n%s", out)
	}
	if strings.Contains(out, ".d") {
		t.Fatalf("expected fourth class to be dropped, got:\n%s", out)
	}

	// Depth bound: a chain deeper than the limit ends in a marker.
	deep := strings.Repeat("<div>", 12) + "x" + strings.Repeat("</div>", 12)
	out = mustParse(t, "<html><body>"+deep+"</body></html>").Outline()
	if !strings.Contains(out, "[...max depth reached...]") {
		t.Fatalf("expected depth marker, got:\n%s", out)
	}

	// Breadth bound: many siblings end in a marker.
	wide := strings.Repeat("<p>x</p>", 20)
	out = mustParse(t, "<html><body>"+wide+"</body></html>").Outline()
	if !strings.Contains(out, "[...and more...]") {
		t.Fatalf("expected breadth marker, got:\n%s", out)
	}
}

func TestIsWrapper(t *testing.T) {
	d := mustParse(t, samplePage)

	if !IsWrapper(nil) {
		t.Fatal("nil should be a wrapper")
	}
	if !IsWrapper(d.Body()) {
		t.Fatal("body should be a wrapper")
	}
	div := FindFirst(d.Root(), Selector{ID: "content"})
	if IsWrapper(div) {
		t.Fatal("content div should not be a wrapper")
	}
}
