package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
)

type contextKey string

const WorkerKey contextKey = "worker"

var ErrInvalidToken = errors.New("invalid token")

// WorkerAuth authenticates data-plane calls with the shared worker
// credentials carried in X-Worker-ID / X-Worker-Token headers.
type WorkerAuth struct {
	repo repository.Repository
}

func NewWorkerAuth(repo repository.Repository) *WorkerAuth {
	return &WorkerAuth{repo: repo}
}

func (m *WorkerAuth) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID := r.Header.Get("X-Worker-ID")
		workerToken := r.Header.Get("X-Worker-Token")
		if workerID == "" || workerToken == "" {
			http.Error(w, "Missing worker credentials", http.StatusUnauthorized)
			return
		}

		worker, err := m.repo.GetWorker(r.Context(), workerID)
		if err != nil || worker.WorkerToken != workerToken {
			http.Error(w, "Invalid worker credentials", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), WorkerKey, worker)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// CallingWorker returns the authenticated worker from the context, or nil.
func CallingWorker(ctx context.Context) *models.Worker {
	if w, ok := ctx.Value(WorkerKey).(*models.Worker); ok {
		return w
	}
	return nil
}

// AdminAuth authenticates control-plane admin calls with an HS256 JWT.
type AdminAuth struct {
	secret []byte
}

func NewAdminAuth(secret string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret)}
}

type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Mint issues an admin token valid for ttl.
func (m *AdminAuth) Mint(username string, ttl time.Duration) (string, error) {
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "gridstream-coordinator",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies an admin token.
func (m *AdminAuth) Validate(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *AdminAuth) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		if _, err := m.Validate(parts[1]); err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}
