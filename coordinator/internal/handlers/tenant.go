package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gridstream-io/gridstream/common/httputil"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
)

// ProbeToken is the cheap authentication check: a HEAD that validates the
// presented tenant token without shipping the tenant graph.
// 200 = valid, 401 = mismatch, 404 = unknown tenant.
func (h *CoordinatorHandler) ProbeToken(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	presented := r.Header.Get("X-Tenant-Token")

	tenant, err := h.repo.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("token probe failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !tenant.Token.Validate(presented) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetTenant returns the full tenant graph for worker-side caching.
func (h *CoordinatorHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")

	tenant, err := h.repo.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "tenant not found")
			return
		}
		h.logger.Error("tenant fetch failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch tenant")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]*models.Tenant{"tenant": tenant})
}

type createTenantRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// CreateTenant registers a tenant and mints its initial token.
func (h *CoordinatorHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	now := time.Now().UTC()
	tenant := &models.Tenant{
		TenantID:  req.TenantID,
		Name:      req.Name,
		Token:     models.NewToken(now),
		CreatedAt: now,
	}

	if err := h.repo.CreateTenant(r.Context(), tenant); err != nil {
		if errors.Is(err, repository.ErrTenantExists) {
			httputil.WriteError(w, http.StatusConflict, "tenant already exists")
			return
		}
		h.logger.Error("tenant create failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	h.logger.Info("tenant created", slog.String("tenant_id", tenant.TenantID))
	httputil.WriteJSON(w, http.StatusCreated, map[string]*models.Tenant{"tenant": tenant})
}

// ListTenants returns every tenant without hosts/producers loaded.
func (h *CoordinatorHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.repo.ListTenants(r.Context())
	if err != nil {
		h.logger.Error("tenant list failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]*models.Tenant{"tenants": tenants})
}

// RotateToken rotates the tenant token, keeping the prior secret in the
// grace window.
func (h *CoordinatorHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")

	tenant, err := h.repo.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "tenant not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch tenant")
		return
	}

	tenant.Token.Rotate(time.Now())
	if err := h.repo.UpdateTenantToken(r.Context(), tenantID, tenant.Token); err != nil {
		h.logger.Error("token rotate failed", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to rotate token")
		return
	}

	h.logger.Info("tenant token rotated", slog.String("tenant_id", tenantID))
	httputil.WriteJSON(w, http.StatusOK, map[string]*models.Token{"token": tenant.Token})
}

type addHostRequest struct {
	Hostname  string `json:"hostname"`
	IPv4      string `json:"ip_address_v4"`
	IPv6      string `json:"ip_address_v6"`
	ProfileID string `json:"profile_id"`
}

// AddHost registers a host under a tenant.
func (h *CoordinatorHandler) AddHost(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")

	var req addHostRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Hostname == "" {
		httputil.WriteError(w, http.StatusBadRequest, "hostname is required")
		return
	}

	host := models.Host{
		ID:        uuid.New().String(),
		Hostname:  req.Hostname,
		IPv4:      req.IPv4,
		IPv6:      req.IPv6,
		ProfileID: req.ProfileID,
	}

	if err := h.repo.AddHost(r.Context(), tenantID, host); err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "tenant not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to add host")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]models.Host{"host": host})
}

type addProducerRequest struct {
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern"`
	Durable   bool     `json:"durable"`
	Encrypted bool     `json:"encrypted"`
	Sinks     []string `json:"sinks"`
}

// AddProducer registers an event producer under a tenant.
func (h *CoordinatorHandler) AddProducer(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")

	var req addProducerRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Pattern == "" {
		req.Pattern = req.Name
	}

	producer := models.EventProducer{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Pattern:   req.Pattern,
		Durable:   req.Durable,
		Encrypted: req.Encrypted,
		Sinks:     req.Sinks,
	}

	if err := h.repo.AddProducer(r.Context(), tenantID, producer); err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "tenant not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to add producer")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]models.EventProducer{"event_producer": producer})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
