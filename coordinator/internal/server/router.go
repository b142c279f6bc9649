package server

import (
	"net/http"

	commonmw "github.com/gridstream-io/gridstream/common/middleware"
	"github.com/gridstream-io/gridstream/coordinator/internal/handlers"
	"github.com/gridstream-io/gridstream/coordinator/internal/middleware"
)

// NewRouter constructs a ServeMux with coordinator API routes registered.
func NewRouter(h *handlers.CoordinatorHandler, workerAuth *middleware.WorkerAuth, adminAuth *middleware.AdminAuth) http.Handler {
	mux := http.NewServeMux()

	// Worker-facing control plane
	mux.HandleFunc("HEAD /v1/tenant/{tenant_id}/token", workerAuth.Require(h.ProbeToken))
	mux.HandleFunc("GET /v1/tenant/{tenant_id}", workerAuth.Require(h.GetTenant))
	mux.HandleFunc("POST /v1/pairing", h.Pairing)
	mux.HandleFunc("PUT /v1/worker/{worker_id}", workerAuth.Require(h.ReportUnreachable))
	mux.HandleFunc("PUT /v1/worker/{worker_id}/status", workerAuth.Require(h.UpdateStatus))
	mux.HandleFunc("GET /v1/worker/{worker_id}/routes", workerAuth.Require(h.GetRoutes))

	// Operator admin surface
	mux.HandleFunc("POST /v1/admin/login", h.Login)
	mux.HandleFunc("POST /v1/tenant", adminAuth.Require(h.CreateTenant))
	mux.HandleFunc("GET /v1/tenant", adminAuth.Require(h.ListTenants))
	mux.HandleFunc("POST /v1/tenant/{tenant_id}/token", adminAuth.Require(h.RotateToken))
	mux.HandleFunc("POST /v1/tenant/{tenant_id}/hosts", adminAuth.Require(h.AddHost))
	mux.HandleFunc("POST /v1/tenant/{tenant_id}/producers", adminAuth.Require(h.AddProducer))
	mux.HandleFunc("GET /v1/worker", adminAuth.Require(h.ListWorkers))

	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	return commonmw.RequestID(mux)
}
