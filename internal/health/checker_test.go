package health_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"scrapegen/internal/health"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(_ context.Context) error { return m.err }

func newTestChecker(p health.Pinger, python, pip string) (*health.Checker, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	logger := slog.Default()
	return health.NewChecker(p, python, pip, logger, reg), reg
}

func TestLiveness_AlwaysUp(t *testing.T) {
	c, _ := newTestChecker(&mockPinger{err: errors.New("db down")}, "sh", "sh")

	result := c.Liveness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	if result.Checks != nil {
		t.Fatalf("expected no checks, got %v", result.Checks)
	}
}

func TestReadiness_AllUp(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{}, "sh", "sh")

	result := c.Readiness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	for _, name := range []string{"database", "python", "pip"} {
		check, ok := result.Checks[name]
		if !ok {
			t.Fatalf("missing %s check", name)
		}
		if check.Status != "up" {
			t.Fatalf("expected %s up, got %s", name, check.Status)
		}
	}

	if g := testGauge(t, reg, "scrapegen_health_check_up", "database"); g != 1 {
		t.Fatalf("expected gauge 1, got %f", g)
	}
}

func TestReadiness_DatabaseDown(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{err: errors.New("connection refused")}, "sh", "sh")

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	db := result.Checks["database"]
	if db.Status != "down" || db.Error == "" {
		t.Fatalf("expected database down with error, got %+v", db)
	}

	if g := testGauge(t, reg, "scrapegen_health_check_up", "database"); g != 0 {
		t.Fatalf("expected gauge 0, got %f", g)
	}
}

func TestReadiness_MissingInterpreter(t *testing.T) {
	c, _ := newTestChecker(&mockPinger{}, "definitely-not-a-real-binary", "sh")

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	py := result.Checks["python"]
	if py.Status != "down" || py.Error == "" {
		t.Fatalf("expected python down with error, got %+v", py)
	}
}

func testGauge(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}
