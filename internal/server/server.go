package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler assembles the full HTTP surface: the websocket event stream, the
// session REST API, and Prometheus metrics.
func Handler(hub *Hub, manager SessionManager) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub, manager)
	registerAPIRoutes(mux, manager)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
