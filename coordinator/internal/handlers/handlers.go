// Package handlers implements the coordinator HTTP API: the worker-facing
// control-plane surface (token probe, tenant fetch, failure reports,
// heartbeats, routing tables, pairing) and the operator admin surface.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gridstream-io/gridstream/common/httputil"
	"github.com/gridstream-io/gridstream/coordinator/internal/config"
	"github.com/gridstream-io/gridstream/coordinator/internal/middleware"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
	"github.com/gridstream-io/gridstream/coordinator/internal/watchlist"
)

type CoordinatorHandler struct {
	repo      repository.Repository
	tracker   *watchlist.Tracker
	adminAuth *middleware.AdminAuth
	admin     config.AdminConfig
	logger    *slog.Logger
}

func NewCoordinatorHandler(repo repository.Repository, tracker *watchlist.Tracker, adminAuth *middleware.AdminAuth, admin config.AdminConfig, logger *slog.Logger) *CoordinatorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoordinatorHandler{
		repo:      repo,
		tracker:   tracker,
		adminAuth: adminAuth,
		admin:     admin,
		logger:    logger,
	}
}

func (h *CoordinatorHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CoordinatorHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login mints an admin JWT after checking the configured credentials.
func (h *CoordinatorHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password)) != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.adminAuth.Mint(req.Username, h.admin.TokenTTL)
	if err != nil {
		h.logger.Error("failed to mint admin token", slog.String("error", err.Error()))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to mint token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.admin.TokenTTL),
	})
}
