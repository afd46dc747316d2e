// Package sandbox runs a generated scraper in its working directory:
// dependency install first, then the script itself, each under its own
// wall-clock timeout.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"scrapegen/internal/metrics"
)

// Phase identifies which sub-step produced a result. Install failures are
// fatal for the attempt; run failures and timeouts are ordinary retryable
// outcomes.
type Phase string

const (
	PhaseInstall Phase = "install"
	PhaseRun     Phase = "run"
)

// Result is the outcome of one execution. A non-zero exit code is a normal
// result, never an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Phase    Phase
	TimedOut bool
}

// Options overrides the runner's default timeouts for a single run.
// Zero values keep the defaults.
type Options struct {
	InstallTimeout time.Duration
	RunTimeout     time.Duration
}

type Runner interface {
	Run(ctx context.Context, dir string, opts Options) Result
}

// Exec is the subprocess-backed runner.
type Exec struct {
	Pip            string
	Python         string
	InstallTimeout time.Duration
	RunTimeout     time.Duration

	logger *slog.Logger
}

func NewExec(installTimeout, runTimeout time.Duration, logger *slog.Logger) *Exec {
	if installTimeout == 0 {
		installTimeout = 120 * time.Second
	}
	if runTimeout == 0 {
		runTimeout = 60 * time.Second
	}
	return &Exec{
		Pip:            "pip",
		Python:         "python",
		InstallTimeout: installTimeout,
		RunTimeout:     runTimeout,
		logger:         logger.With("component", "sandbox"),
	}
}

// Run installs requirements.txt then executes scraper.py inside dir.
func (e *Exec) Run(ctx context.Context, dir string, opts Options) Result {
	installTimeout := e.InstallTimeout
	if opts.InstallTimeout > 0 {
		installTimeout = opts.InstallTimeout
	}
	runTimeout := e.RunTimeout
	if opts.RunTimeout > 0 {
		runTimeout = opts.RunTimeout
	}

	e.logger.Info("installing dependencies", "dir", dir)

	install := e.command(ctx, dir, PhaseInstall, installTimeout, e.Pip, "install", "-r", "requirements.txt")
	if install.ExitCode != 0 {
		e.logger.Warn("dependency install failed", "dir", dir, "exit_code", install.ExitCode)
		return install
	}

	e.logger.Info("executing scraper.py", "dir", dir)
	run := e.command(ctx, dir, PhaseRun, runTimeout, e.Python, "scraper.py")

	e.logger.Info("script execution finished", "dir", dir, "exit_code", run.ExitCode, "timed_out", run.TimedOut)
	return run
}

func (e *Exec) command(ctx context.Context, dir string, phase Phase, timeout time.Duration, name string, args ...string) Result {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		metrics.SandboxPhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(started).Seconds())
	}()

	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), Phase: phase}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = 1
		res.Stdout = ""
		res.Stderr = fmt.Sprintf("script execution timed out after %d seconds", int(timeout.Seconds()))
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		// The process never started (missing binary, bad dir).
		res.ExitCode = 1
		res.Stderr = err.Error()
	}
	return res
}
