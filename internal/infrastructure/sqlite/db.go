// Package sqlite persists jobs and their attempt histories in an embedded
// database so runs survive restarts and stay inspectable afterwards.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	objective    TEXT NOT NULL,
	settings     TEXT NOT NULL,
	status       TEXT NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs (created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS job_attempts (
	job_id       TEXT NOT NULL REFERENCES jobs (id),
	attempt_num  INTEGER NOT NULL,
	reason       TEXT NOT NULL,
	script       TEXT NOT NULL,
	requirements TEXT NOT NULL,
	stdout       TEXT NOT NULL,
	stderr       TEXT NOT NULL,
	PRIMARY KEY (job_id, attempt_num)
);
`

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// The driver serializes access; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}
