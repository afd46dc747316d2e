package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrapegen/internal/agent"
	"scrapegen/internal/domain"
	"scrapegen/internal/jobid"
	"scrapegen/internal/metrics"
	"scrapegen/internal/repository"
)

type ScrapeUsecase struct {
	agent    *agent.Agent
	jobs     repository.JobRepository
	attempts repository.AttemptRepository
	logger   *slog.Logger
}

func NewScrapeUsecase(
	a *agent.Agent,
	jobs repository.JobRepository,
	attempts repository.AttemptRepository,
	logger *slog.Logger,
) *ScrapeUsecase {
	return &ScrapeUsecase{
		agent:    a,
		jobs:     jobs,
		attempts: attempts,
		logger:   logger.With("component", "usecase"),
	}
}

type ScrapeInput struct {
	URL       string
	Objective string
	Settings  domain.Settings
}

// Scrape runs one job end to end: persist it as running, drive the control
// loop, persist the attempt history and terminal status, and return the
// outcome. Persistence failures after the run are logged, not returned; the
// caller still gets the real outcome.
func (u *ScrapeUsecase) Scrape(ctx context.Context, input ScrapeInput, progress agent.ProgressFunc) (*domain.Job, domain.Outcome, error) {
	job := &domain.Job{
		ID:        newRunID(),
		URL:       input.URL,
		Objective: input.Objective,
		Settings:  input.Settings,
		Status:    domain.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}

	ctx = jobid.WithJobID(ctx, job.ID)

	if _, err := u.jobs.Create(ctx, job); err != nil {
		return nil, domain.Outcome{}, fmt.Errorf("create job: %w", err)
	}

	u.logger.Info("job started", "job_id", job.ID, "url", job.URL)
	metrics.JobsInFlight.Inc()
	start := time.Now()

	outcome, history := u.agent.Run(ctx, job, progress)

	metrics.JobsInFlight.Dec()
	metrics.JobsCompletedTotal.WithLabelValues(string(outcome.Status)).Inc()
	metrics.JobDuration.WithLabelValues(string(outcome.Status)).Observe(time.Since(start).Seconds())

	// Record with a fresh context so a cancelled request still leaves a
	// complete trail behind.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for _, att := range history {
		if err := u.attempts.Append(recordCtx, job.ID, att); err != nil {
			u.logger.Error("record attempt", "job_id", job.ID, "attempt", att.Index, "error", err)
		}
	}
	if err := u.jobs.Finish(recordCtx, job.ID, outcome.Status, outcome.Message); err != nil {
		u.logger.Error("record outcome", "job_id", job.ID, "error", err)
	}

	job.Status = outcome.Status
	u.logger.Info("job finished", "job_id", job.ID, "status", outcome.Status, "attempts", len(history))
	return job, outcome, nil
}

func (u *ScrapeUsecase) GetJob(ctx context.Context, jobID string) (*domain.Job, []domain.Attempt, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("get job: %w", err)
	}
	attempts, err := u.attempts.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	return job, attempts, nil
}

func (u *ScrapeUsecase) ListJobs(ctx context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 50
	}
	jobs, err := u.jobs.ListJobs(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// newRunID produces identifiers like run_1a2b3c4d, stable across the job
// directory, the package name, and the API.
func newRunID() string {
	return "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
