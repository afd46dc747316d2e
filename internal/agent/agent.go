// Package agent drives a job from URL to verdict: fetch, condense, generate,
// execute, validate, and retry with accumulated failure history until the
// attempt budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scrapegen/internal/domain"
	"scrapegen/internal/extract"
	"scrapegen/internal/fetch"
	"scrapegen/internal/htmldoc"
	"scrapegen/internal/metrics"
	"scrapegen/internal/oracle"
	"scrapegen/internal/sandbox"
	"scrapegen/internal/validate"
	"scrapegen/internal/workspace"
)

const (
	// previewLen bounds the stdout sample returned to the caller.
	previewLen = 500
	// historyFieldLen bounds stdout/stderr kept in the failure history.
	historyFieldLen = 2000
)

const actionRequiredMsg = "The target site needs a real browser engine. Download the scraper package, " +
	"run 'pip install -r requirements.txt' and 'playwright install' locally, then 'python scraper.py'."

type Config struct {
	MaxAttempts int
	SweepMaxAge time.Duration
}

// ProgressFunc receives a log line per state transition. Implementations run
// on the job goroutine and must not block; panics are swallowed.
type ProgressFunc func(message string)

type Agent struct {
	fetcher     fetch.Fetcher
	generator   oracle.Generator
	runner      sandbox.Runner
	validator   *validate.Validator
	workspace   *workspace.Manager
	maxAttempts int
	sweepMaxAge time.Duration
	logger      *slog.Logger
}

func New(
	fetcher fetch.Fetcher,
	generator oracle.Generator,
	runner sandbox.Runner,
	validator *validate.Validator,
	ws *workspace.Manager,
	cfg Config,
	logger *slog.Logger,
) *Agent {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SweepMaxAge <= 0 {
		cfg.SweepMaxAge = 24 * time.Hour
	}
	return &Agent{
		fetcher:     fetcher,
		generator:   generator,
		runner:      runner,
		validator:   validator,
		workspace:   ws,
		maxAttempts: cfg.MaxAttempts,
		sweepMaxAge: cfg.SweepMaxAge,
		logger:      logger.With("component", "agent"),
	}
}

// Run executes the full control loop for one job and returns the terminal
// outcome plus every attempt it recorded, in order. It never panics; any
// attempt-level error becomes part of the failure history instead.
func (a *Agent) Run(ctx context.Context, job *domain.Job, progress ProgressFunc) (domain.Outcome, []domain.Attempt) {
	logger := a.logger.With("job_id", job.ID)
	notify := func(msg string) {
		defer func() { _ = recover() }()
		if progress != nil {
			progress(msg)
		}
	}

	// Housekeeping is independent of this job and must never block it.
	go a.workspace.Sweep(a.sweepMaxAge)

	notify(fmt.Sprintf("Fetching %s", job.URL))
	raw, err := a.fetchPage(ctx, job)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return domain.Outcome{
			Status:  domain.StatusFailed,
			Message: fmt.Sprintf("Failed to fetch the page: %v", err),
		}, nil
	}

	dir, err := a.workspace.JobDir(job.ID)
	if err != nil {
		logger.Error("workspace setup failed", "error", err)
		return domain.Outcome{
			Status:  domain.StatusFailed,
			Message: fmt.Sprintf("Failed to prepare the workspace: %v", err),
		}, nil
	}

	notify("Analyzing page structure")
	outline := buildOutline(raw)
	excerpt := extract.Reduce(raw, job.Objective)

	var history []domain.Attempt
	var last domain.Attempt

	for i := 0; i < a.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return cancelled(history, err), history
		}

		if i > 0 {
			// Widen the context around what the previous attempt saw.
			// The outline is sent on the first attempt only.
			excerpt = extract.Expand(raw, last.Excerpt)
			outline = ""
		}

		notify(fmt.Sprintf("Generating scraper (attempt %d of %d)", i+1, a.maxAttempts))
		artifact, err := a.generate(ctx, job, excerpt, outline, history)
		if err != nil {
			logger.Warn("generation failed", "attempt", i, "error", err)
			last = domain.Attempt{
				Index:   i,
				Reason:  fmt.Sprintf("code generation failed: %v", err),
				Stderr:  clip(err.Error(), historyFieldLen),
				Excerpt: excerpt.HTML,
			}
			metrics.AttemptsTotal.WithLabelValues("failed").Inc()
			history = append(history, last)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return cancelled(history, err), history
			}
			continue
		}

		if err := a.workspace.WriteArtifact(dir, artifact); err != nil {
			logger.Error("write artifact failed", "error", err)
			return domain.Outcome{
				Status:  domain.StatusFailed,
				Message: fmt.Sprintf("Failed to write the scraper files: %v", err),
			}, history
		}

		notify("Installing dependencies and running the scraper")
		res := a.runner.Run(ctx, dir, sandbox.Options{
			InstallTimeout: time.Duration(job.Settings.InstallTimeoutSec) * time.Second,
			RunTimeout:     time.Duration(job.Settings.RunTimeoutSec) * time.Second,
		})

		if res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != "" {
			notify("Validating extracted data")
			verdict := a.validator.Validate(res.Stdout, job.Objective)
			if verdict.Valid {
				metrics.AttemptsTotal.WithLabelValues("valid").Inc()
				logger.Info("job succeeded", "attempt", i)
				// The winning attempt goes into the record too; the loop
				// ends here, so the oracle never sees it.
				history = append(history, record(i, verdict.Feedback, artifact, res, excerpt))
				downloadID, perr := a.packageArtifact(job.ID, logger)
				if perr != nil {
					return domain.Outcome{
						Status:  domain.StatusFailed,
						Message: fmt.Sprintf("Scraper worked but packaging failed: %v", perr),
					}, history
				}
				notify("Done")
				return domain.Outcome{
					Status:      domain.StatusSucceeded,
					Message:     verdict.Feedback,
					DataPreview: clip(res.Stdout, previewLen),
					DownloadID:  downloadID,
				}, history
			}
			last = record(i, verdict.Feedback, artifact, res, excerpt)
		} else if strings.Contains(strings.ToLower(res.Stderr), "playwright install") {
			// A clean run that merely mentions the marker in a warning
			// never reaches this branch.
			logger.Info("browser engine required", "attempt", i)
			downloadID, _ := a.packageArtifact(job.ID, logger)
			notify("Browser engine required on the client side")
			return domain.Outcome{
				Status:     domain.StatusActionRequired,
				Message:    actionRequiredMsg,
				DownloadID: downloadID,
			}, history
		} else {
			reason := fmt.Sprintf("execution failed with exit code %d", res.ExitCode)
			last = record(i, reason, artifact, res, excerpt)
		}

		metrics.AttemptsTotal.WithLabelValues("failed").Inc()
		logger.Warn("attempt failed", "attempt", i, "reason", last.Reason)
		notify(fmt.Sprintf("Attempt %d failed: %s", i+1, last.Reason))
		history = append(history, last)
	}

	return domain.Outcome{
		Status:  domain.StatusFailed,
		Message: fmt.Sprintf("All %d attempts failed. Last error: %s", a.maxAttempts, last.Reason),
		Detail:  last.Stderr,
	}, history
}

func (a *Agent) fetchPage(ctx context.Context, job *domain.Job) (string, error) {
	if sec := job.Settings.FetchTimeoutSec; sec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
	}
	return a.fetcher.Fetch(ctx, job.URL)
}

func (a *Agent) generate(ctx context.Context, job *domain.Job, excerpt domain.Excerpt, outline string, history []domain.Attempt) (domain.Artifact, error) {
	if sec := job.Settings.GenerateTimeoutSec; sec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
	}
	return a.generator.Generate(ctx, oracle.Request{
		Objective: job.Objective,
		URL:       job.URL,
		Excerpt:   excerpt.HTML,
		Outline:   outline,
		History:   history,
		Model:     job.Settings.Model,
		APIKeys:   job.Settings.APIKeys,
	})
}

func (a *Agent) packageArtifact(jobID string, logger *slog.Logger) (string, error) {
	if _, err := a.workspace.Package(jobID); err != nil {
		logger.Error("packaging failed", "error", err)
		return "", err
	}
	return jobID, nil
}

func buildOutline(raw string) string {
	doc, err := htmldoc.Parse(raw)
	if err != nil {
		return ""
	}
	return doc.Outline()
}

func record(index int, reason string, artifact domain.Artifact, res sandbox.Result, excerpt domain.Excerpt) domain.Attempt {
	return domain.Attempt{
		Index:    index,
		Reason:   reason,
		Artifact: artifact,
		Stdout:   clip(res.Stdout, historyFieldLen),
		Stderr:   clip(res.Stderr, historyFieldLen),
		Excerpt:  excerpt.HTML,
	}
}

func cancelled(history []domain.Attempt, err error) domain.Outcome {
	out := domain.Outcome{
		Status:  domain.StatusFailed,
		Message: fmt.Sprintf("Job cancelled: %v", err),
	}
	if len(history) > 0 {
		out.Detail = history[len(history)-1].Reason
	}
	return out
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
