package usecase

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"scrapegen/internal/agent"
	"scrapegen/internal/domain"
	"scrapegen/internal/infrastructure/sqlite"
	"scrapegen/internal/oracle"
	"scrapegen/internal/repository"
	"scrapegen/internal/sandbox"
	"scrapegen/internal/validate"
	"scrapegen/internal/workspace"
)

type stubFetcher struct{ html string }

func (s *stubFetcher) Fetch(_ context.Context, _ string) (string, error) { return s.html, nil }

type stubGenerator struct{}

func (s *stubGenerator) Generate(_ context.Context, _ oracle.Request) (domain.Artifact, error) {
	return domain.Artifact{Script: "print('x')", Requirements: "requests"}, nil
}

type stubRunner struct{ res sandbox.Result }

func (s *stubRunner) Run(_ context.Context, _ string, _ sandbox.Options) sandbox.Result {
	return s.res
}

func newTestUsecase(t *testing.T, res sandbox.Result) *ScrapeUsecase {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	base := t.TempDir()
	ws, err := workspace.NewManager(filepath.Join(base, "work"), filepath.Join(base, "dl"), slog.Default())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}

	a := agent.New(
		&stubFetcher{html: "<html><body><p>hello world</p></body></html>"},
		&stubGenerator{},
		&stubRunner{res: res},
		validate.New(),
		ws,
		agent.Config{MaxAttempts: 2, SweepMaxAge: time.Hour},
		slog.Default(),
	)

	return NewScrapeUsecase(a, sqlite.NewJobRepository(db), sqlite.NewAttemptRepository(db), slog.Default())
}

var runIDPattern = regexp.MustCompile(`^run_[0-9a-f]{8}$`)

func TestScrapePersistsSuccess(t *testing.T) {
	u := newTestUsecase(t, sandbox.Result{Stdout: `[{"a":1}]`, ExitCode: 0})

	job, outcome, err := u.Scrape(context.Background(), ScrapeInput{
		URL:       "https://example.com",
		Objective: "get items",
	}, nil)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if !runIDPattern.MatchString(job.ID) {
		t.Fatalf("unexpected run id: %q", job.ID)
	}
	if outcome.Status != domain.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%s)", outcome.Status, outcome.Message)
	}

	stored, attempts, err := u.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != domain.StatusSucceeded {
		t.Fatalf("expected persisted terminal status, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
	if len(attempts) != 1 {
		t.Fatalf("expected the winning attempt persisted, got %d", len(attempts))
	}
}

func TestScrapePersistsFailureHistory(t *testing.T) {
	u := newTestUsecase(t, sandbox.Result{Stderr: "Traceback", ExitCode: 1})

	job, outcome, err := u.Scrape(context.Background(), ScrapeInput{
		URL:       "https://example.com",
		Objective: "get items",
	}, nil)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if outcome.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}

	_, attempts, err := u.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected both attempts persisted, got %d", len(attempts))
	}
	if attempts[0].Index != 0 || attempts[1].Index != 1 {
		t.Fatalf("unexpected attempt order: %+v", attempts)
	}
}

func TestListJobsClampsLimit(t *testing.T) {
	u := newTestUsecase(t, sandbox.Result{Stdout: `[{"a":1}]`, ExitCode: 0})

	if _, _, err := u.Scrape(context.Background(), ScrapeInput{URL: "https://example.com", Objective: "x"}, nil); err != nil {
		t.Fatalf("scrape: %v", err)
	}

	jobs, err := u.ListJobs(context.Background(), repository.ListJobsInput{Limit: -1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
}
