package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/prescriptions/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/prescriptions/:id", "200"))
	if count != 1 {
		t.Errorf("expected 1 request counted, got %v", count)
	}
}

func TestMiddlewareCountsErrorStatus(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/fail", "404"))
	if count != 1 {
		t.Errorf("expected 1 error request counted, got %v", count)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.PrescriptionsIssued.Inc()
	m.IssuanceRejectedTotal.WithLabelValues("no_care_relationship").Inc()
	m.VerificationsTotal.WithLabelValues("not_found").Inc()
	m.VerificationsTotal.WithLabelValues("not_found").Inc()

	if got := testutil.ToFloat64(m.PrescriptionsIssued); got != 1 {
		t.Errorf("prescriptions issued = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("not_found")); got != 2 {
		t.Errorf("verifications not_found = %v, want 2", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.PrescriptionsIssued.Inc()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "portal_prescriptions_issued_total 1") {
		t.Errorf("expected metrics output to contain issued counter, got:\n%s", rec.Body.String())
	}
}
