package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scrapegen/internal/domain"
	"scrapegen/internal/repository"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	settings, err := json.Marshal(job.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, url, objective, settings, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.URL, job.Objective, string(settings), string(job.Status), job.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, objective, settings, status, created_at, completed_at
		FROM jobs
		WHERE id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	return job, err
}

func (r *JobRepository) ListJobs(ctx context.Context, input repository.ListJobsInput) ([]*domain.Job, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, url, objective, settings, status, created_at, completed_at
		FROM jobs`)

	var conds []string
	var args []any
	if input.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(input.Status))
	}
	if input.CursorTime != nil {
		// Keyset pagination on (created_at DESC, id DESC).
		conds = append(conds, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, input.CursorTime.UTC(), input.CursorTime.UTC(), input.CursorID)
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, input.Limit)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *JobRepository) Finish(ctx context.Context, jobID string, status domain.Status, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, message = ?, completed_at = ?
		WHERE id = ?`,
		string(status), message, time.Now().UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		j           domain.Job
		settings    string
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&j.ID, &j.URL, &j.Objective, &settings, &status, &j.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(settings), &j.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	j.Status = domain.Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}
