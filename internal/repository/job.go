package repository

import (
	"context"
	"time"

	"scrapegen/internal/domain"
)

type ListJobsInput struct {
	Status     domain.Status // empty = all statuses
	CursorTime *time.Time    // nil = first page
	CursorID   string        // used only when CursorTime is non-nil
	Limit      int
}

// UseCase depends on interface, not concrete implementation.
// This way we get: 1) can swap DB later without touching usecase 2) We can pass a mock implementation of interface in tests
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)
	GetByID(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, input ListJobsInput) ([]*domain.Job, error)

	// Finish closes a job record with its terminal status and message.
	Finish(ctx context.Context, jobID string, status domain.Status, message string) error
}
