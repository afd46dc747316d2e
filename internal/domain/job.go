package domain

import (
	"time"
)

type Status string

const (
	StatusRunning        Status = "running"
	StatusSucceeded      Status = "succeeded"
	StatusActionRequired Status = "action_required"
	StatusFailed         Status = "failed"
)

// Job is one scraping request. It is owned by the control loop for its
// duration; only the terminal Outcome is handed back to the caller.
type Job struct {
	ID        string
	URL       string
	Objective string
	Settings  Settings

	Status      Status
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Settings carries the per-request configuration for a job. Zero values
// fall back to server-side defaults.
type Settings struct {
	Model              string   `json:"model"`
	APIKeys            []string `json:"apiKeys"`
	FetchTimeoutSec    int      `json:"fetchTimeoutSec"`
	GenerateTimeoutSec int      `json:"generateTimeoutSec"`
	InstallTimeoutSec  int      `json:"installTimeoutSec"`
	RunTimeoutSec      int      `json:"runTimeoutSec"`
}

// Artifact is the generated extractor: the script plus its dependency
// manifest, written to the job's working directory as scraper.py and
// requirements.txt.
type Artifact struct {
	Script       string
	Requirements string
}

// Outcome is the terminal result of a job run.
type Outcome struct {
	Status      Status
	Message     string
	DataPreview string
	DownloadID  string // empty unless an artifact was packaged
	Detail      string // last attempt's reason + stderr on failure
}
