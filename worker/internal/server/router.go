package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	commonmw "github.com/gridstream-io/gridstream/common/middleware"
	"github.com/gridstream-io/gridstream/worker/internal/handlers"
)

// NewRouter constructs a ServeMux with worker API routes registered.
func NewRouter(h *handlers.WorkerHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tenant/{tenant_id}/events", h.Intake)
	mux.HandleFunc("HEAD /v1/routes/refresh", h.RefreshRoutes)
	mux.HandleFunc("PUT /v1/routes/refresh", h.RefreshRoutes)
	mux.HandleFunc("PUT /v1/broadcast", h.Broadcast)

	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	return commonmw.RequestID(mux)
}
