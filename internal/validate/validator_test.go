package validate

import (
	"strings"
	"testing"
)

func TestValidateTable(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		raw       string
		objective string
		valid     bool
		feedback  string
	}{
		{
			name:      "empty output",
			raw:       "   \n ",
			objective: "get 5 items",
			valid:     false,
			feedback:  "produced no output",
		},
		{
			name:      "empty list",
			raw:       `[]`,
			objective: "get 5 items",
			valid:     false,
			feedback:  "empty list",
		},
		{
			name:      "too few items",
			raw:       `[{"a":1},{"a":2},{"a":3}]`,
			objective: "get 10 products",
			valid:     false,
			feedback:  "Only found 3 items, but 10 were requested",
		},
		{
			name:      "enough items over ratio",
			raw:       `[{"a":1},{"a":2},{"a":3},{"a":4},{"a":5},{"a":6}]`,
			objective: "get 5 products",
			valid:     true,
			feedback:  "Successfully extracted 6 items",
		},
		{
			name:      "exactly at ratio boundary",
			raw:       `[{"a":1},{"a":2},{"a":3},{"a":4},{"a":5}]`,
			objective: "get 10 products",
			valid:     true,
			feedback:  "Successfully extracted 5 items",
		},
		{
			name:      "no count in objective",
			raw:       `[{"a":1}]`,
			objective: "get all products",
			valid:     true,
			feedback:  "Successfully extracted 1 items",
		},
		{
			name:      "image objective without urls",
			raw:       `[{"title":"a"},{"title":"b"}]`,
			objective: "download all images",
			valid:     false,
			feedback:  "no URLs detected",
		},
		{
			name:      "image objective with urls",
			raw:       `[{"src":"http://x/1.png"},{"src":"http://x/2.png"}]`,
			objective: "download all images",
			valid:     true,
			feedback:  "Successfully extracted 2 items",
		},
		{
			name:      "non-empty object",
			raw:       `{"total": 3}`,
			objective: "summary",
			valid:     true,
			feedback:  "Successfully extracted structured data",
		},
		{
			name:      "empty object",
			raw:       `{}`,
			objective: "summary",
			valid:     false,
			feedback:  "empty JSON object",
		},
		{
			name:      "json scalar",
			raw:       `42`,
			objective: "anything",
			valid:     false,
			feedback:  "doesn't appear to contain structured data",
		},
		{
			name:      "plain text lines",
			raw:       "line1\nline2",
			objective: "anything",
			valid:     true,
			feedback:  "Successfully extracted 2 lines of data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.raw, tt.objective)
			if got.Valid != tt.valid {
				t.Fatalf("expected valid=%v, got %v (feedback: %s)", tt.valid, got.Valid, got.Feedback)
			}
			if !strings.Contains(got.Feedback, tt.feedback) {
				t.Fatalf("expected feedback containing %q, got %q", tt.feedback, got.Feedback)
			}
		})
	}
}

func TestValidateCustomRatio(t *testing.T) {
	v := New()
	v.CountRatio = 0.9

	got := v.Validate(`[{"a":1},{"a":2},{"a":3},{"a":4},{"a":5}]`, "get 10 products")
	if got.Valid {
		t.Fatalf("expected 5 of 10 to fail a 0.9 ratio, got valid (feedback: %s)", got.Feedback)
	}
}

func TestValidateImageSampleOnlyFirstThree(t *testing.T) {
	v := New()

	// URL appears only past the sampled records; still flagged invalid.
	raw := `[{"t":"a"},{"t":"b"},{"t":"c"},{"src":"http://x/1.png"}]`
	got := v.Validate(raw, "grab the photo gallery")
	if got.Valid {
		t.Fatalf("expected invalid, got valid (feedback: %s)", got.Feedback)
	}
}
