package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("award", OutcomeSuccess, time.Millisecond)
		m.AddPoints("award", 10)
		m.IncBalanceLookup(OutcomeSuccess)
	})

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics_Ledger(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("redeem", OutcomeSuccess, time.Millisecond)
	m.ObserveOperation("redeem", OutcomeRejected, time.Millisecond)
	m.ObserveOperation("redeem", OutcomeRejected, time.Millisecond)
	m.AddPoints("redeem", 80)
	m.AddPoints("redeem", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("redeem", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("redeem", OutcomeRejected)))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.PointsTotal.WithLabelValues("redeem")))
}

func TestMetrics_Middleware(t *testing.T) {
	registry := NewRegistry()
	m := New(registry)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/users/:uid", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	for _, target := range []string{"/api/users/a", "/api/users/b", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCount.WithLabelValues(http.MethodGet, "/api/users/:uid", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues(http.MethodGet, "/boom", "500")))

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}
