package handlers

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terarelay/terarelay/internal/config"
)

func TestMetricsHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "handler_test_total", Help: "test"})
	require.NoError(t, reg.Register(counter))
	counter.Add(2)

	cfg := config.Default()
	cfg.Metrics.Path = "/internal/metrics"
	e := echo.New()
	NewMetricsHandler(cfg, reg).Register(e)

	rec := do(e, http.MethodGet, "/internal/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "handler_test_total 2")
}

func TestMetricsHandlerDisabled(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Metrics.Enabled = false
	e := echo.New()
	NewMetricsHandler(cfg, prometheus.NewRegistry()).Register(e)

	rec := do(e, http.MethodGet, config.DefaultMetricsPath)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
