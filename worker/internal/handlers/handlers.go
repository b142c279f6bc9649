// Package handlers implements the worker HTTP surface: tenant event
// intake, grid callbacks, and health probes.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/httputil"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/relay"
	"github.com/gridstream-io/gridstream/worker/internal/router"
	"github.com/gridstream-io/gridstream/worker/internal/service"
)

type WorkerHandler struct {
	processor *service.Processor
	router    *router.Router
	relay     *relay.Relay
	logger    *slog.Logger
}

// NewWorkerHandler creates the HTTP handler set. relay may be nil on
// non-broadcaster personalities; router may be nil on terminal ones.
func NewWorkerHandler(processor *service.Processor, rt *router.Router, rl *relay.Relay, logger *slog.Logger) *WorkerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerHandler{
		processor: processor,
		router:    rt,
		relay:     rl,
		logger:    logger,
	}
}

func (h *WorkerHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WorkerHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Intake accepts one tenant event, authenticates it with the presented
// token and hands it to the pipeline.
func (h *WorkerHandler) Intake(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	token := r.Header.Get("X-Tenant-Token")
	if token == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "missing tenant token")
		return
	}

	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid event body")
		return
	}

	if err := h.processor.Ingest(r.Context(), tenantID, token, &event); err != nil {
		h.writeIngestError(w, tenantID, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *WorkerHandler) writeIngestError(w http.ResponseWriter, tenantID string, err error) {
	var (
		authErr     *griderr.MessageAuthenticationError
		validateErr *griderr.MessageValidationError
		notFoundErr *griderr.ResourceNotFoundError
		commErr     *griderr.CoordinatorCommunicationError
		routeErr    *griderr.RoutingError
	)

	switch {
	case errors.Is(err, service.ErrRateLimited):
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.As(err, &authErr):
		httputil.WriteError(w, http.StatusUnauthorized, "authentication failed")
	case errors.As(err, &validateErr):
		httputil.WriteError(w, http.StatusBadRequest, validateErr.Msg)
	case errors.As(err, &notFoundErr):
		httputil.WriteError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &commErr):
		h.logger.Error("intake blocked on coordinator",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusServiceUnavailable, "coordinator unavailable")
	case errors.As(err, &routeErr):
		h.logger.Error("intake routing exhausted",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusServiceUnavailable, "no route to next hop")
	default:
		h.logger.Error("intake failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "event processing failed")
	}
}

// RefreshRoutes is the topology nudge callback: drop the cached routing
// table so the next route re-fetches. HEAD or PUT, body ignored.
func (h *WorkerHandler) RefreshRoutes(w http.ResponseWriter, r *http.Request) {
	if h.router != nil {
		h.router.Invalidate()
	}
	w.WriteHeader(http.StatusOK)
}

// Broadcast accepts a topology-change handoff from the coordinator.
// Only broadcaster-personality workers wire this route.
func (h *WorkerHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	if h.relay == nil {
		httputil.WriteError(w, http.StatusNotFound, "not a broadcaster")
		return
	}

	var envelope models.BroadcastEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid broadcast body")
		return
	}
	if len(envelope.Broadcast.Targets) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "broadcast has no targets")
		return
	}

	h.relay.Accept(envelope.Broadcast)
	w.WriteHeader(http.StatusAccepted)
}
