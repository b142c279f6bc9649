package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/config"
	"github.com/gridstream-io/gridstream/coordinator/internal/handlers"
	"github.com/gridstream-io/gridstream/coordinator/internal/middleware"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
	"github.com/gridstream-io/gridstream/coordinator/internal/server"
	"github.com/gridstream-io/gridstream/coordinator/internal/watchlist"
)

type testEnv struct {
	repo      *repository.InMemoryRepository
	adminAuth *middleware.AdminAuth
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := repository.NewInMemoryRepository()
	adminAuth := middleware.NewAdminAuth("test-secret")
	workerAuth := middleware.NewWorkerAuth(repo)
	tracker := watchlist.NewTracker(repo, nil, 5, 2*time.Minute, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	h := handlers.NewCoordinatorHandler(repo, tracker, adminAuth, config.AdminConfig{
		Username:     "admin",
		PasswordHash: string(hash),
		TokenTTL:     time.Hour,
	}, nil)

	return &testEnv{
		repo:      repo,
		adminAuth: adminAuth,
		handler:   server.NewRouter(h, workerAuth, adminAuth),
	}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, err := e.adminAuth.Mint("admin", time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedTenant(t *testing.T, tenantID string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		TenantID: tenantID,
		Name:     "tenant " + tenantID,
		Token:    models.NewToken(time.Now().UTC()),
		Producers: []models.EventProducer{
			{ID: "p-1", Name: "producer1", Pattern: "producer1", Durable: true, Sinks: []string{"search"}},
		},
	}
	require.NoError(t, e.repo.CreateTenant(context.Background(), tenant))
	return tenant
}

func (e *testEnv) seedWorker(t *testing.T, id string, p models.Personality, status models.WorkerStatus) *models.Worker {
	t.Helper()
	worker := &models.Worker{
		WorkerID:    id,
		WorkerToken: "token-" + id,
		Hostname:    "host-" + id,
		Callback:    "localhost:8762",
		Personality: p,
		Status:      status,
	}
	require.NoError(t, e.repo.CreateWorker(context.Background(), worker))
	return worker
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func workerHeaders(w *models.Worker) http.Header {
	h := http.Header{}
	h.Set("X-Worker-ID", w.WorkerID)
	h.Set("X-Worker-Token", w.WorkerToken)
	return h
}

func TestProbeToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "1234")
	reporter := env.seedWorker(t, "w-corr", models.PersonalityCorrelation, models.StatusOnline)

	tests := []struct {
		name       string
		tenantID   string
		token      string
		wantStatus int
	}{
		{"valid token", "1234", tenant.Token.Valid, http.StatusOK},
		{"wrong token", "1234", "nope", http.StatusUnauthorized},
		{"empty token", "1234", "", http.StatusUnauthorized},
		{"unknown tenant", "9999", tenant.Token.Valid, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := workerHeaders(reporter)
			header.Set("X-Tenant-Token", tt.token)
			rec := doJSON(t, env.handler, http.MethodHead, "/v1/tenant/"+tt.tenantID+"/token", nil, header)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestProbeToken_PreviousSecretStillAccepted(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "1234")
	reporter := env.seedWorker(t, "w-corr", models.PersonalityCorrelation, models.StatusOnline)

	old := tenant.Token.Valid
	tenant.Token.Rotate(time.Now())
	require.NoError(t, env.repo.UpdateTenantToken(context.Background(), "1234", tenant.Token))

	header := workerHeaders(reporter)
	header.Set("X-Tenant-Token", old)
	rec := doJSON(t, env.handler, http.MethodHead, "/v1/tenant/1234/token", nil, header)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTenant(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "1234")
	reporter := env.seedWorker(t, "w-corr", models.PersonalityCorrelation, models.StatusOnline)

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/tenant/1234", nil, workerHeaders(reporter))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tenant models.Tenant `json:"tenant"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1234", resp.Tenant.TenantID)
	require.Len(t, resp.Tenant.Producers, 1)
	assert.Equal(t, "producer1", resp.Tenant.Producers[0].Name)
	assert.True(t, resp.Tenant.Producers[0].Durable)

	rec = doJSON(t, env.handler, http.MethodGet, "/v1/tenant/9999", nil, workerHeaders(reporter))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkerAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "1234")

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/tenant/1234", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h := http.Header{}
	h.Set("X-Worker-ID", "w-ghost")
	h.Set("X-Worker-Token", "bogus")
	rec = doJSON(t, env.handler, http.MethodGet, "/v1/tenant/1234", nil, h)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPairing(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/pairing", map[string]interface{}{
		"hostname":    "worker-a",
		"callback":    "worker-a:8762",
		"personality": "correlation",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["worker_id"])
	assert.NotEmpty(t, resp["worker_token"])

	worker, err := env.repo.GetWorker(context.Background(), resp["worker_id"])
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, worker.Status)
	assert.Equal(t, models.PersonalityCorrelation, worker.Personality)
}

func TestPairing_RejectsUnknownPersonality(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/pairing", map[string]interface{}{
		"hostname":    "worker-a",
		"callback":    "worker-a:8762",
		"personality": "chaos",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	worker := env.seedWorker(t, "w-1", models.PersonalityStorage, models.StatusNew)

	rec := doJSON(t, env.handler, http.MethodPut, "/v1/worker/w-1/status", map[string]interface{}{
		"status":      "online",
		"system_info": map[string]interface{}{"hostname": "host-w-1", "pid": 42},
	}, workerHeaders(worker))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := env.repo.GetWorker(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, got.Status)
	assert.Equal(t, 42, got.SystemInfo.PID)
}

func TestUpdateStatus_OnlySelf(t *testing.T) {
	env := newTestEnv(t)
	env.seedWorker(t, "w-1", models.PersonalityStorage, models.StatusOnline)
	other := env.seedWorker(t, "w-2", models.PersonalityStorage, models.StatusOnline)

	rec := doJSON(t, env.handler, http.MethodPut, "/v1/worker/w-1/status", map[string]interface{}{
		"status": "offline",
	}, workerHeaders(other))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportUnreachable_AlwaysOK(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.seedWorker(t, "w-corr", models.PersonalityCorrelation, models.StatusOnline)
	env.seedWorker(t, "w-store", models.PersonalityStorage, models.StatusOnline)

	rec := doJSON(t, env.handler, http.MethodPut, "/v1/worker/w-store", nil, workerHeaders(reporter))
	assert.Equal(t, http.StatusOK, rec.Code)

	item, err := env.repo.GetWatchlistItem(context.Background(), "w-store")
	require.NoError(t, err)
	assert.Equal(t, 1, item.WatchCount)

	// Reports against workers the registry has never seen still succeed.
	rec = doJSON(t, env.handler, http.MethodPut, "/v1/worker/ghost", nil, workerHeaders(reporter))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRoutes(t *testing.T) {
	env := newTestEnv(t)
	caller := env.seedWorker(t, "w-corr", models.PersonalityCorrelation, models.StatusOnline)
	env.seedWorker(t, "w-store", models.PersonalityStorage, models.StatusOnline)
	env.seedWorker(t, "w-norm", models.PersonalityNormalization, models.StatusOnline)
	env.seedWorker(t, "w-off", models.PersonalityStorage, models.StatusOffline)

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/worker/w-corr/routes", nil, workerHeaders(caller))
	require.Equal(t, http.StatusOK, rec.Code)

	var table models.RoutingTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	require.Len(t, table.Routes, 2)

	storage := table.Lookup("storage")
	require.NotNil(t, storage)
	require.Len(t, storage.Targets, 1)
	assert.Equal(t, "w-store", storage.Targets[0].WorkerID)
}

func TestLoginAndAdminSurface(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/admin/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, env.handler, http.MethodPost, "/v1/admin/login", map[string]string{
		"username": "admin",
		"password": "hunter2",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	// The minted token opens the admin surface.
	h := http.Header{}
	h.Set("Authorization", "Bearer "+login.Token)
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/tenant", map[string]string{
		"tenant_id": "acme",
		"name":      "Acme",
	}, h)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Without it the surface stays shut.
	rec = doJSON(t, env.handler, http.MethodPost, "/v1/tenant", map[string]string{"tenant_id": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTenant_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "1234")

	h := http.Header{}
	h.Set("Authorization", "Bearer "+env.adminToken(t))
	rec := doJSON(t, env.handler, http.MethodPost, "/v1/tenant", map[string]string{
		"tenant_id": "1234",
	}, h)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRotateToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.seedTenant(t, "1234")
	original := tenant.Token.Valid

	h := http.Header{}
	h.Set("Authorization", "Bearer "+env.adminToken(t))
	rec := doJSON(t, env.handler, http.MethodPost, "/v1/tenant/1234/token", nil, h)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token models.Token `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, original, resp.Token.Valid)
	assert.Equal(t, original, resp.Token.Previous)
}

func TestAddProducer_PatternDefaultsToName(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenant(t, "1234")

	h := http.Header{}
	h.Set("Authorization", "Bearer "+env.adminToken(t))
	rec := doJSON(t, env.handler, http.MethodPost, "/v1/tenant/1234/producers", map[string]interface{}{
		"name":    "syslog",
		"durable": false,
	}, h)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Producer models.EventProducer `json:"event_producer"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "syslog", resp.Producer.Pattern)

	tenant, err := env.repo.GetTenant(context.Background(), "1234")
	require.NoError(t, err)
	assert.NotNil(t, tenant.FindProducer("syslog"))
}

func TestListWorkers_RedactsTokens(t *testing.T) {
	env := newTestEnv(t)
	env.seedWorker(t, "w-1", models.PersonalityStorage, models.StatusOnline)

	h := http.Header{}
	h.Set("Authorization", "Bearer "+env.adminToken(t))
	rec := doJSON(t, env.handler, http.MethodGet, "/v1/worker", nil, h)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Workers []models.Worker `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Workers, 1)
	assert.Empty(t, resp.Workers[0].WorkerToken)
}
