// Package oracle defines the generation contract: objective + page context
// in, extraction artifact out. The control loop depends only on the
// Generator interface; the Gemini adapter is one implementation.
package oracle

import (
	"context"
	"errors"

	"scrapegen/internal/domain"
)

// Request is the input of one generation call. Outline is populated only on
// a job's first attempt; retries carry the failure history instead.
// Model and APIKeys, when set, override the implementation's configured
// defaults for this call only.
type Request struct {
	Objective string
	URL       string
	Excerpt   string
	Outline   string
	History   []domain.Attempt
	Model     string
	APIKeys   []string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (domain.Artifact, error)
}

var (
	// ErrNoCredentials means the request carried no API keys at all.
	ErrNoCredentials = errors.New("no API keys configured")

	// ErrEmptyResponse means the model returned no usable text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrBadResponse means the response parsed but lacked required fields.
	ErrBadResponse = errors.New("model response missing required fields")
)
