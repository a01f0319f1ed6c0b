package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsHandler serves the Prometheus registry fed by the otel exporter
func NewMetricsHandler() http.Handler {
	return promhttp.Handler()
}
