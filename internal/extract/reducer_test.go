package extract

import (
	"fmt"
	"strings"
	"testing"

	"scrapegen/internal/domain"
)

func productPage(items int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Store</title><meta name="description" content="Products for sale"></head><body>`)
	b.WriteString(`<script>tracking()</script><nav>menu</nav>`)
	b.WriteString(`<main><div class="listing">`)
	for i := 0; i < items; i++ {
		fmt.Fprintf(&b, `<div class="row"><div class="product"><span class="name">Item %d</span><span class="price">$%d</span></div></div>`, i, i)
	}
	b.WriteString(`</div></main><footer>legal</footer></body></html>`)
	return b.String()
}

func TestReduceStripsNoiseAndKeepsTitle(t *testing.T) {
	got := Reduce(productPage(3), "get every product name and price")

	if !strings.Contains(got.HTML, "<title>Store</title>") {
		t.Fatalf("expected title in excerpt, got:\n%s", got.HTML)
	}
	if !strings.Contains(got.HTML, "Products for sale") {
		t.Fatal("expected meta description in excerpt")
	}
	if strings.Contains(got.HTML, "tracking()") || strings.Contains(got.HTML, "legal") {
		t.Fatalf("expected script and footer to be stripped, got:\n%s", got.HTML)
	}
	if got.Source != domain.SourceRelevance {
		t.Fatalf("expected relevance source, got %s", got.Source)
	}
}

func TestReduceKeywordActivation(t *testing.T) {
	// "product" and "price" both map to class-substring selectors; the
	// matched elements' grandparents should carry the items.
	got := Reduce(productPage(3), "get every product name and price")

	if !strings.Contains(got.HTML, "Item 0") || !strings.Contains(got.HTML, "$2") {
		t.Fatalf("expected product rows in excerpt, got:\n%s", got.HTML)
	}
}

func TestReduceDeterministic(t *testing.T) {
	page := productPage(10)
	objective := "list the product title, price and image url"

	first := Reduce(page, objective)
	for i := 0; i < 5; i++ {
		if got := Reduce(page, objective); got.HTML != first.HTML {
			t.Fatalf("excerpt differs between identical runs on iteration %d", i)
		}
	}
}

func TestReduceNoKeywordsFallsBackToMain(t *testing.T) {
	got := Reduce(productPage(2), "zzzz qqqq")

	// No keyword selectors fire, so the main region itself is the context.
	if !strings.Contains(got.HTML, "Item 1") {
		t.Fatalf("expected main content fallback, got:\n%s", got.HTML)
	}
}

func TestReduceCapsLength(t *testing.T) {
	big := productPage(5000)

	got := Reduce(big, "get every product name and price")
	if len(got.HTML) > MaxExcerptLen+len(truncationMarker) {
		t.Fatalf("excerpt exceeds cap: %d", len(got.HTML))
	}
	if len(big) > MaxExcerptLen && !got.Truncated {
		t.Fatal("expected truncated excerpt to be flagged")
	}
	if got.Truncated && !strings.HasSuffix(got.HTML, truncationMarker) {
		t.Fatal("expected truncation marker suffix")
	}
}

func TestReduceEmptyInput(t *testing.T) {
	got := Reduce("", "anything")
	if got.Source != domain.SourceRelevance {
		t.Fatalf("expected relevance source, got %s", got.Source)
	}
}

func TestReducePlainTextInput(t *testing.T) {
	raw := strings.Repeat("not html at all. ", 2000)

	got := Reduce(raw, "items")
	if len(got.HTML) > MaxExcerptLen+len(truncationMarker) {
		t.Fatalf("excerpt exceeds cap: %d", len(got.HTML))
	}
}

func TestReducePerSelectorCap(t *testing.T) {
	// 100 isolated matches; each selector keeps at most 20.
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, `<section><div><span class="item">entry %d</span></div></section>`, i)
	}
	b.WriteString("</body></html>")

	got := Reduce(b.String(), "every item")
	if !strings.Contains(got.HTML, "entry 0") {
		t.Fatalf("expected early matches in excerpt, got:\n%s", got.HTML)
	}
	if strings.Contains(got.HTML, "entry 99") {
		t.Fatal("expected matches beyond the per-selector cap to be excluded")
	}
}
