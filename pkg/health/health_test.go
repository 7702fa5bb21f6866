package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonny/askuser-bot/pkg/health"
)

func TestChecker_AllHealthy(t *testing.T) {
	c := health.NewChecker()
	c.Register("slack", func(context.Context) error { return nil })
	c.Register("database", func(context.Context) error { return nil })

	res := c.Check(context.Background())
	if res.Status != health.StatusHealthy {
		t.Errorf("expected healthy, got %s", res.Status)
	}
	if res.Details["slack"] != "ok" || res.Details["database"] != "ok" {
		t.Errorf("unexpected details %v", res.Details)
	}
}

func TestChecker_OneFailing(t *testing.T) {
	c := health.NewChecker()
	c.Register("slack", func(context.Context) error { return errors.New("slack not connected") })
	c.Register("database", func(context.Context) error { return nil })

	res := c.Check(context.Background())
	if res.Status != health.StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", res.Status)
	}
	if res.Details["slack"] != "slack not connected" {
		t.Errorf("unexpected slack detail %q", res.Details["slack"])
	}
}

func TestChecker_CheckGetsDeadline(t *testing.T) {
	c := health.NewChecker()
	c.Register("slow", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	})
	if res := c.Check(context.Background()); res.Status != health.StatusHealthy {
		t.Errorf("expected each check to run under a deadline, got %v", res.Details)
	}
}

func TestReadinessHandler(t *testing.T) {
	c := health.NewChecker()
	c.Register("slack", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var body health.CheckResult
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["slack"] != "down" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	health.NewChecker().LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
