package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"scrapegen/internal/domain"
)

type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Append(ctx context.Context, jobID string, a domain.Attempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_attempts (job_id, attempt_num, reason, script, requirements, stdout, stderr)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		jobID, a.Index, a.Reason, a.Artifact.Script, a.Artifact.Requirements, a.Stdout, a.Stderr,
	)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) ListByJobID(ctx context.Context, jobID string) ([]domain.Attempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attempt_num, reason, script, requirements, stdout, stderr
		FROM job_attempts
		WHERE job_id = ?
		ORDER BY attempt_num ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		err := rows.Scan(&a.Index, &a.Reason, &a.Artifact.Script, &a.Artifact.Requirements, &a.Stdout, &a.Stderr)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
