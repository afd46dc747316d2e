package extract

import (
	"regexp"
	"strings"

	"scrapegen/internal/domain"
	"scrapegen/internal/htmldoc"
)

// anchorWordCount is how many leading words of the previous excerpt's first
// element are used to relocate it in the full document.
const anchorWordCount = 15

// Expand widens a failed attempt's excerpt by one structural level. It
// relocates the previous excerpt's first real element inside the full
// document by text match, then emits the subtree of that anchor's
// grandparent. Failed attempts usually mean the excerpt cut off a sibling
// holding the actual data; climbing a single level recovers it without
// ballooning the context to the whole page.
//
// Every fallback path returns the full body; an unparseable document comes
// back unchanged. Never fails.
func Expand(raw, lastExcerpt string) (excerpt domain.Excerpt) {
	defer func() {
		if r := recover(); r != nil {
			excerpt = clamp(raw, domain.SourceExpansion)
		}
	}()

	full, err := htmldoc.Parse(raw)
	if err != nil {
		return clamp(raw, domain.SourceExpansion)
	}

	snippet, err := htmldoc.Parse(lastExcerpt)
	if err != nil {
		return bodyFallback(full, raw)
	}

	anchor := htmldoc.FirstContentElement(snippet.Root())
	if anchor == nil {
		return bodyFallback(full, raw)
	}

	text := htmldoc.Text(anchor)
	if text == "" {
		return bodyFallback(full, raw)
	}

	re, err := anchorPattern(text)
	if err != nil {
		return bodyFallback(full, raw)
	}

	textNode := htmldoc.FindTextNode(full.Root(), re.MatchString)
	if textNode == nil {
		return bodyFallback(full, raw)
	}

	parent := textNode.Parent
	if parent != nil && parent.Parent != nil && !htmldoc.IsWrapper(parent.Parent) {
		return clamp(htmldoc.Render(parent.Parent), domain.SourceExpansion)
	}
	return bodyFallback(full, raw)
}

// anchorPattern builds a whitespace-tolerant pattern from the first
// anchorWordCount words of the anchor text.
func anchorPattern(text string) (*regexp.Regexp, error) {
	words := strings.Fields(text)
	if len(words) > anchorWordCount {
		words = words[:anchorWordCount]
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(strings.Join(escaped, `\s*`))
}

func bodyFallback(full *htmldoc.Document, raw string) domain.Excerpt {
	if body := full.Body(); body != nil {
		return clamp(htmldoc.Render(body), domain.SourceExpansion)
	}
	return clamp(raw, domain.SourceExpansion)
}
