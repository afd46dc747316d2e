package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scrapegen/internal/domain"
	"scrapegen/internal/metrics"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout    = 120 * time.Second
	defaultRetryDelay = 6 * time.Second
)

// GeminiConfig configures the Gemini-backed generator. APIKeys is the
// rotation list: keys are tried in order with RetryDelay between failures.
type GeminiConfig struct {
	APIKeys    []string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
}

type Gemini struct {
	keys       []string
	model      string
	baseURL    string
	retryDelay time.Duration
	client     *http.Client
	logger     *slog.Logger
}

func NewGemini(cfg GeminiConfig, logger *slog.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Gemini{
		keys:       cfg.APIKeys,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		retryDelay: cfg.RetryDelay,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "oracle"),
	}
}

// Wire types for the generateContent endpoint.

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// artifactSchema forces the model into the exact JSON shape the agent
// expects back.
var artifactSchema = map[string]any{
	"type":     "OBJECT",
	"required": []string{"scraper_py", "requirements_txt"},
	"properties": map[string]any{
		"scraper_py": map[string]any{
			"type":        "STRING",
			"description": "The Python code for the web scraping script, written to scraper.py.",
		},
		"requirements_txt": map[string]any{
			"type":        "STRING",
			"description": "The content of requirements.txt listing all required libraries.",
		},
	},
}

type artifactPayload struct {
	ScraperPy       string `json:"scraper_py"`
	RequirementsTxt string `json:"requirements_txt"`
}

// Generate calls the model, rotating through the configured API keys until
// one succeeds. Exhausting every key wraps the last failure.
func (g *Gemini) Generate(ctx context.Context, req Request) (domain.Artifact, error) {
	keys := g.keys
	if len(req.APIKeys) > 0 {
		keys = req.APIKeys
	}
	if len(keys) == 0 {
		return domain.Artifact{}, ErrNoCredentials
	}
	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	prompt := buildPrompt(req)

	var lastErr error
	for i, key := range keys {
		if i > 0 {
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				return domain.Artifact{}, ctx.Err()
			}
		}

		g.logger.Info("calling generation model", "model", model, "key", maskKey(key), "history_len", len(req.History))

		artifact, err := g.generateOnce(ctx, model, key, prompt)
		if err == nil {
			return artifact, nil
		}
		lastErr = err
		g.logger.Error("generation call failed", "key", maskKey(key), "error", err)

		if ctx.Err() != nil {
			return domain.Artifact{}, ctx.Err()
		}
	}

	return domain.Artifact{}, fmt.Errorf("all %d API keys failed: %w", len(keys), lastErr)
}

func (g *Gemini) generateOnce(ctx context.Context, model, key, prompt string) (domain.Artifact, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.2,
			ResponseMimeType: "application/json",
			ResponseSchema:   artifactSchema,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		metrics.OracleRequestDuration.WithLabelValues("error").Observe(time.Since(started).Seconds())
		return domain.Artifact{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.OracleRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(started).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Artifact{}, fmt.Errorf("model API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.Artifact{}, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return domain.Artifact{}, fmt.Errorf("model API error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return domain.Artifact{}, ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return domain.Artifact{}, ErrEmptyResponse
	}

	var artifact artifactPayload
	if err := json.Unmarshal([]byte(text.String()), &artifact); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if artifact.ScraperPy == "" || artifact.RequirementsTxt == "" {
		return domain.Artifact{}, ErrBadResponse
	}

	return domain.Artifact{Script: artifact.ScraperPy, Requirements: artifact.RequirementsTxt}, nil
}

// maskKey keeps credentials out of the logs; short keys are hidden
// entirely rather than shown verbatim.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
