package health

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies that all dependencies are reachable: the job store and
// the interpreter toolchain the sandbox shells out to.
type Checker struct {
	db     Pinger
	python string
	pip    string
	logger *slog.Logger
	gauge  *prometheus.GaugeVec
}

// NewChecker creates a health checker and registers its Prometheus gauge.
func NewChecker(db Pinger, python, pip string, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scrapegen",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		db:     db,
		python: python,
		pip:    pip,
		logger: logger.With("component", "health"),
		gauge:  gauge,
	}
}

// Liveness returns a simple "up" response if the process is running.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness checks every dependency and reports per-check status.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result := HealthResult{
		Status: "up",
		Checks: make(map[string]CheckResult),
	}

	if err := c.db.PingContext(checkCtx); err != nil {
		c.logger.Warn("database health check failed", "error", err)
		result.Status = "down"
		result.Checks["database"] = CheckResult{Status: "down", Error: err.Error()}
		c.gauge.WithLabelValues("database").Set(0)
	} else {
		result.Checks["database"] = CheckResult{Status: "up"}
		c.gauge.WithLabelValues("database").Set(1)
	}

	for name, bin := range map[string]string{"python": c.python, "pip": c.pip} {
		if _, err := exec.LookPath(bin); err != nil {
			c.logger.Warn("toolchain health check failed", "binary", bin, "error", err)
			result.Status = "down"
			result.Checks[name] = CheckResult{Status: "down", Error: err.Error()}
			c.gauge.WithLabelValues(name).Set(0)
		} else {
			result.Checks[name] = CheckResult{Status: "up"}
			c.gauge.WithLabelValues(name).Set(1)
		}
	}

	return result
}
