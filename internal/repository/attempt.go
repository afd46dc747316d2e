package repository

import (
	"context"

	"scrapegen/internal/domain"
)

type AttemptRepository interface {
	// Append records a finished generation attempt for a job.
	Append(ctx context.Context, jobID string, attempt domain.Attempt) error

	// ListByJobID returns all attempts for a job, ordered by attempt index ASC.
	ListByJobID(ctx context.Context, jobID string) ([]domain.Attempt, error)
}
