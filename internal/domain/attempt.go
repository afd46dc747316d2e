package domain

// ExcerptSource records where an excerpt came from.
type ExcerptSource string

const (
	SourceRelevance ExcerptSource = "relevance"
	SourceExpansion ExcerptSource = "expansion"
)

// Excerpt is a bounded-size projection of the source document.
type Excerpt struct {
	HTML      string
	Source    ExcerptSource
	Truncated bool
}

// Verdict is the output validator's judgment of one execution's stdout.
// It never exists outside the Attempt that produced it.
type Verdict struct {
	Valid    bool
	Feedback string
}

// Attempt is one iteration of the generate-execute-validate loop.
// Once recorded it is immutable; failed attempts are appended to the
// job's history in attempt order and never reordered or pruned.
type Attempt struct {
	Index    int // 0-based
	Reason   string
	Artifact Artifact
	Stdout   string
	Stderr   string
	Excerpt  string // the excerpt the oracle saw on this attempt
}
