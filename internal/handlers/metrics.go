package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terarelay/terarelay/internal/config"
)

type MetricsHandler struct {
	enabled  bool
	path     string
	gatherer prometheus.Gatherer
}

func NewMetricsHandler(cfg config.Config, gatherer prometheus.Gatherer) *MetricsHandler {
	path := cfg.Metrics.Path
	if path == "" {
		path = config.DefaultMetricsPath
	}
	return &MetricsHandler{enabled: cfg.Metrics.Enabled && gatherer != nil, path: path, gatherer: gatherer}
}

// Register exposes the gatherer on the configured path. Nothing is
// registered when metrics are disabled.
func (h *MetricsHandler) Register(e *echo.Echo) {
	if !h.enabled {
		return
	}
	e.GET(h.path, echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}
