package workspace

import (
	"archive/zip"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegen/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	base := t.TempDir()
	m, err := NewManager(filepath.Join(base, "temp_scrapers"), filepath.Join(base, "downloads"), slog.Default())
	require.NoError(t, err)
	return m
}

func TestWriteArtifactAndPackage(t *testing.T) {
	m := newTestManager(t)

	dir, err := m.JobDir("run_12345678")
	require.NoError(t, err)

	artifact := domain.Artifact{Script: "print('hi')", Requirements: "requests\nbeautifulsoup4"}
	require.NoError(t, m.WriteArtifact(dir, artifact))

	script, err := os.ReadFile(filepath.Join(dir, "scraper.py"))
	require.NoError(t, err)
	assert.Equal(t, artifact.Script, string(script))

	zipPath, err := m.Package("run_12345678")
	require.NoError(t, err)

	// The archive holds both files with their contents intact.
	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	assert.True(t, names["scraper.py"], "missing scraper.py in zip")
	assert.True(t, names["requirements.txt"], "missing requirements.txt in zip")

	got, ok := m.ZipPath("run_12345678")
	require.True(t, ok)
	assert.Equal(t, zipPath, got)
}

func TestZipPathMissing(t *testing.T) {
	m := newTestManager(t)

	_, ok := m.ZipPath("run_nope0000")
	assert.False(t, ok)
}

func TestSweepRemovesOnlyOldEntries(t *testing.T) {
	m := newTestManager(t)

	oldDir, err := m.JobDir("run_old00000")
	require.NoError(t, err)
	newDir, err := m.JobDir("run_new00000")
	require.NoError(t, err)

	require.NoError(t, m.WriteArtifact(oldDir, domain.Artifact{Script: "x", Requirements: "y"}))
	_, err = m.Package("run_old00000")
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, stale, stale))
	oldZip, _ := m.ZipPath("run_old00000")
	require.NoError(t, os.Chtimes(oldZip, stale, stale))

	m.Sweep(24 * time.Hour)

	_, err = os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err), "old dir should be swept")
	_, ok := m.ZipPath("run_old00000")
	assert.False(t, ok, "old zip should be swept")
	_, err = os.Stat(newDir)
	assert.NoError(t, err, "fresh dir should survive")
}

func TestResetClearsBothTrees(t *testing.T) {
	m := newTestManager(t)

	dir, err := m.JobDir("run_reset000")
	require.NoError(t, err)
	require.NoError(t, m.WriteArtifact(dir, domain.Artifact{Script: "x", Requirements: "y"}))
	_, err = m.Package("run_reset000")
	require.NoError(t, err)

	require.NoError(t, m.Reset())

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	_, ok := m.ZipPath("run_reset000")
	assert.False(t, ok)
}
