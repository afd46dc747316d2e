// Package workspace owns the filesystem side of a job: per-run working
// directories, artifact files, downloadable zip packages, and the
// housekeeping that keeps both trees from filling the disk.
package workspace

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrapegen/internal/domain"
)

type Manager struct {
	workBase  string
	downloads string
	logger    *slog.Logger
}

func NewManager(workBase, downloads string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(workBase, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	return &Manager{
		workBase:  workBase,
		downloads: downloads,
		logger:    logger.With("component", "workspace"),
	}, nil
}

// Reset wipes both trees. Called once at process start; leftovers from a
// previous run are not downloadable anyway.
func (m *Manager) Reset() error {
	for _, dir := range []string{m.workBase, m.downloads} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recreate %s: %w", dir, err)
		}
	}
	return nil
}

// JobDir creates and returns the working directory for a run.
func (m *Manager) JobDir(runID string) (string, error) {
	dir := filepath.Join(m.workBase, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// WriteArtifact writes the generated script and its dependency manifest
// into the job directory, overwriting earlier attempts.
func (m *Manager) WriteArtifact(dir string, artifact domain.Artifact) error {
	if err := os.WriteFile(filepath.Join(dir, "scraper.py"), []byte(artifact.Script), 0o644); err != nil {
		return fmt.Errorf("write scraper.py: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte(artifact.Requirements), 0o644); err != nil {
		return fmt.Errorf("write requirements.txt: %w", err)
	}
	return nil
}

// Package zips the run's working directory into downloads/<runID>.zip and
// returns the archive path.
func (m *Manager) Package(runID string) (string, error) {
	srcDir := filepath.Join(m.workBase, runID)
	zipPath := filepath.Join(m.downloads, runID+".zip")

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = out.Close() }()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("zip %s: %w", srcDir, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize zip: %w", err)
	}

	m.logger.Info("packaged artifact", "run_id", runID, "path", zipPath)
	return zipPath, nil
}

// ZipPath resolves a run ID to its package, reporting whether it exists.
func (m *Manager) ZipPath(runID string) (string, bool) {
	path := filepath.Join(m.downloads, runID+".zip")
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Sweep deletes working directories and packages older than maxAge.
// Best effort: individual failures are logged and skipped, never returned.
func (m *Manager) Sweep(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(m.workBase)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(m.workBase, e.Name())
			if !olderThan(e, cutoff) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				m.logger.Warn("sweep: remove work dir", "path", path, "error", err)
				continue
			}
			m.logger.Info("cleaned up old work dir", "path", path)
		}
	}

	entries, err = os.ReadDir(m.downloads)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		path := filepath.Join(m.downloads, e.Name())
		if !olderThan(e, cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			m.logger.Warn("sweep: remove package", "path", path, "error", err)
			continue
		}
		m.logger.Info("cleaned up old package", "path", path)
	}
}

func olderThan(e os.DirEntry, cutoff time.Time) bool {
	info, err := e.Info()
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}
