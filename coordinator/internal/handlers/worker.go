package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gridstream-io/gridstream/common/httputil"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/middleware"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
	"github.com/gridstream-io/gridstream/coordinator/internal/routing"
)

type pairingRequest struct {
	Hostname    string             `json:"hostname"`
	Callback    string             `json:"callback"`
	IPv4        string             `json:"ip_address_v4"`
	IPv6        string             `json:"ip_address_v6"`
	Personality models.Personality `json:"personality"`
}

// Pairing registers a new worker and issues its shared credentials.
// Workers start in status new and come online through their first
// heartbeat.
func (h *CoordinatorHandler) Pairing(w http.ResponseWriter, r *http.Request) {
	var req pairingRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Personality.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "unknown personality")
		return
	}
	if req.Callback == "" {
		httputil.WriteError(w, http.StatusBadRequest, "callback is required")
		return
	}

	now := time.Now().UTC()
	worker := &models.Worker{
		WorkerID:     uuid.New().String(),
		WorkerToken:  strings.ReplaceAll(uuid.New().String(), "-", ""),
		Hostname:     req.Hostname,
		Callback:     req.Callback,
		IPv4:         req.IPv4,
		IPv6:         req.IPv6,
		Personality:  req.Personality,
		Status:       models.StatusNew,
		RegisteredAt: now,
		LastSeen:     now,
	}

	if err := h.repo.CreateWorker(r.Context(), worker); err != nil {
		h.logger.Error("worker pairing failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to register worker")
		return
	}

	h.logger.Info("worker registered",
		slog.String("worker_id", worker.WorkerID),
		slog.String("personality", string(worker.Personality)),
		slog.String("callback", worker.Callback))

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"worker_id":    worker.WorkerID,
		"worker_token": worker.WorkerToken,
	})
}

// ReportUnreachable accepts a best-effort failure report for a worker and
// feeds it to the watchlist tracker. Always 200: the reporting worker has
// already routed around the failure.
func (h *CoordinatorHandler) ReportUnreachable(w http.ResponseWriter, r *http.Request) {
	workerID := r.PathValue("worker_id")
	reporter := middleware.CallingWorker(r.Context())

	h.logger.Info("worker reported unreachable",
		slog.String("worker_id", workerID),
		slog.String("reported_by", reporterID(reporter)))

	h.tracker.Report(r.Context(), workerID)
	w.WriteHeader(http.StatusOK)
}

func reporterID(w *models.Worker) string {
	if w == nil {
		return ""
	}
	return w.WorkerID
}

type statusUpdateRequest struct {
	Status     models.WorkerStatus `json:"status"`
	SystemInfo *models.SystemInfo  `json:"system_info"`
}

// UpdateStatus handles worker heartbeats and explicit status changes.
// A worker may only update itself.
func (h *CoordinatorHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	workerID := r.PathValue("worker_id")
	caller := middleware.CallingWorker(r.Context())
	if caller == nil || caller.WorkerID != workerID {
		httputil.WriteError(w, http.StatusForbidden, "workers may only update their own status")
		return
	}

	var req statusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.repo.UpdateWorkerStatus(r.Context(), workerID, req.Status, req.SystemInfo); err != nil {
		if errors.Is(err, repository.ErrWorkerNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "worker not found")
			return
		}
		h.logger.Error("status update failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetRoutes derives and returns the routing table for the calling worker.
func (h *CoordinatorHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	workerID := r.PathValue("worker_id")
	caller := middleware.CallingWorker(r.Context())
	if caller == nil || caller.WorkerID != workerID {
		httputil.WriteError(w, http.StatusForbidden, "workers may only fetch their own routes")
		return
	}

	registry, err := h.repo.ListWorkers(r.Context())
	if err != nil {
		h.logger.Error("route derivation failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to derive routes")
		return
	}

	table := routing.DeriveTable(caller, registry)
	httputil.WriteJSON(w, http.StatusOK, table)
}

// ListWorkers returns the full worker registry with tokens redacted.
func (h *CoordinatorHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repo.ListWorkers(r.Context())
	if err != nil {
		h.logger.Error("worker list failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}

	for _, worker := range workers {
		worker.WorkerToken = ""
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]*models.Worker{"workers": workers})
}
