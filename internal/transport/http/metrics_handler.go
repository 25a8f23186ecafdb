package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// HubStats reports push channel counters.
type HubStats interface {
	ClientCount() int
	Stats() map[string]int64
}

// MetricsHandler exposes in-process counters that are not OTel instruments.
type MetricsHandler struct {
	hub HubStats
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(hub HubStats) *MetricsHandler {
	return &MetricsHandler{hub: hub}
}

// WebSocketStats handles GET /ws/stats
func (h *MetricsHandler) WebSocketStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"clients": h.hub.ClientCount(),
		"stats":   h.hub.Stats(),
	})
}
