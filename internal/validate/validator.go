// Package validate classifies a generated scraper's stdout as acceptable
// or not, with human-readable feedback the next generation attempt can act on.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"scrapegen/internal/domain"
)

// DefaultCountRatio is the minimum fraction of an explicitly requested item
// count a result must reach. "Roughly matches" is all the objective implies,
// so this is a tunable heuristic, not a law.
const DefaultCountRatio = 0.5

var (
	firstNumber = regexp.MustCompile(`\d+`)
	imageWords  = []string{"image", "picture", "photo", "img"}
)

type Validator struct {
	// CountRatio overrides DefaultCountRatio when > 0.
	CountRatio float64
}

func New() *Validator {
	return &Validator{CountRatio: DefaultCountRatio}
}

// Validate judges raw output against the objective. It never fails: internal
// errors become invalid verdicts carrying the error text.
func (v *Validator) Validate(raw, objective string) (verdict domain.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = domain.Verdict{Valid: false, Feedback: fmt.Sprintf("Error validating results: %v", r)}
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return domain.Verdict{
			Valid:    false,
			Feedback: "The scraper produced no output. This usually means no data was found or there was an error.",
		}
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		switch d := data.(type) {
		case []any:
			return v.validateList(d, objective)
		case map[string]any:
			if len(d) == 0 {
				return domain.Verdict{
					Valid:    false,
					Feedback: "The scraper returned an empty JSON object. The selectors might be incorrect.",
				}
			}
			return domain.Verdict{Valid: true, Feedback: "Successfully extracted structured data"}
		default:
			// JSON scalar: not a usable record shape.
			return domain.Verdict{
				Valid:    false,
				Feedback: "The scraper output doesn't appear to contain structured data",
			}
		}
	}

	// Not JSON; plain text with at least one non-blank line is loosely accepted.
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return domain.Verdict{
				Valid:    true,
				Feedback: fmt.Sprintf("Successfully extracted %d lines of data", len(lines)),
			}
		}
	}

	return domain.Verdict{
		Valid:    false,
		Feedback: "The scraper output doesn't appear to contain structured data",
	}
}

func (v *Validator) validateList(records []any, objective string) domain.Verdict {
	count := len(records)
	if count == 0 {
		return domain.Verdict{
			Valid:    false,
			Feedback: "The scraper returned an empty list. This could mean the CSS selectors are wrong or the data is loaded dynamically. Please try again.",
		}
	}

	if m := firstNumber.FindString(objective); m != "" {
		requested, err := strconv.Atoi(m)
		if err == nil && requested > 0 && float64(count) < float64(requested)*v.ratio() {
			return domain.Verdict{
				Valid:    false,
				Feedback: fmt.Sprintf("Only found %d items, but %d were requested. The scraper may need better selectors.", count, requested),
			}
		}
	}

	if objectiveWantsImages(objective) && !sampleHasURL(records) {
		return domain.Verdict{
			Valid:    false,
			Feedback: "Found data but no URLs detected. For image scraping, expected to find image URLs.",
		}
	}

	return domain.Verdict{Valid: true, Feedback: fmt.Sprintf("Successfully extracted %d items", count)}
}

func (v *Validator) ratio() float64 {
	if v.CountRatio > 0 {
		return v.CountRatio
	}
	return DefaultCountRatio
}

func objectiveWantsImages(objective string) bool {
	lower := strings.ToLower(objective)
	for _, w := range imageWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// sampleHasURL checks the first three records for a URL-like substring.
func sampleHasURL(records []any) bool {
	sample := records
	if len(sample) > 3 {
		sample = sample[:3]
	}
	for _, rec := range sample {
		s := fmt.Sprint(rec)
		if strings.Contains(strings.ToLower(s), "url") || strings.Contains(s, "http") {
			return true
		}
	}
	return false
}
