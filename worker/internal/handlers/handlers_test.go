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

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/handlers"
	"github.com/gridstream-io/gridstream/worker/internal/relay"
	"github.com/gridstream-io/gridstream/worker/internal/server"
	"github.com/gridstream-io/gridstream/worker/internal/service"
)

type stubIdentity struct {
	tenant *models.Tenant
}

func (s *stubIdentity) GetValidatedTenant(ctx context.Context, tenantID, token string) (*models.Tenant, error) {
	if s.tenant == nil || s.tenant.TenantID != tenantID {
		return nil, griderr.NotFound("tenant", tenantID)
	}
	if !s.tenant.Token.Validate(token) {
		return nil, griderr.Authentication(tenantID)
	}
	return s.tenant, nil
}

type stubForwarder struct {
	routed int
	err    error
}

func (s *stubForwarder) Route(ctx context.Context, event *models.Event) error {
	if s.err != nil {
		return s.err
	}
	s.routed++
	return nil
}

func newIntakeHandler(t *testing.T, fwd *stubForwarder) (http.Handler, *models.Tenant) {
	t.Helper()

	tenant := &models.Tenant{
		TenantID: "1234",
		Token:    models.NewToken(time.Now()),
		Hosts:    []models.Host{{ID: "h-1", Hostname: "web01"}},
		Producers: []models.EventProducer{
			{ID: "p-1", Name: "producer1", Pattern: "producer1"},
		},
	}
	processor := service.NewProcessor(models.PersonalityCorrelation, nil, &stubIdentity{tenant: tenant}, fwd, nil, nil, nil, nil)
	h := handlers.NewWorkerHandler(processor, nil, nil, nil)
	return server.NewRouter(h), tenant
}

func postEvent(t *testing.T, handler http.Handler, tenantID, token string, event interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(event))
	req := httptest.NewRequest(http.MethodPost, "/v1/tenant/"+tenantID+"/events", &buf)
	if token != "" {
		req.Header.Set("X-Tenant-Token", token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntake_Accepted(t *testing.T) {
	fwd := &stubForwarder{}
	handler, tenant := newIntakeHandler(t, fwd)

	rec := postEvent(t, handler, "1234", tenant.Token.Valid, map[string]string{
		"host": "web01", "pname": "producer1", "time": "2026-08-30T12:00:00Z",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, fwd.routed)
}

func TestIntake_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		tenantID   string
		token      func(*models.Tenant) string
		event      map[string]string
		fwdErr     error
		wantStatus int
	}{
		{
			name:       "missing token",
			tenantID:   "1234",
			token:      func(*models.Tenant) string { return "" },
			event:      map[string]string{"host": "web01"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong token",
			tenantID:   "1234",
			token:      func(*models.Tenant) string { return "bogus" },
			event:      map[string]string{"host": "web01"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown tenant",
			tenantID:   "9999",
			token:      func(tn *models.Tenant) string { return tn.Token.Valid },
			event:      map[string]string{"host": "web01"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unregistered host",
			tenantID:   "1234",
			token:      func(tn *models.Tenant) string { return tn.Token.Valid },
			event:      map[string]string{"host": "rogue"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "routing exhausted",
			tenantID:   "1234",
			token:      func(tn *models.Tenant) string { return tn.Token.Valid },
			event:      map[string]string{"host": "web01", "pname": "producer1"},
			fwdErr:     griderr.Routing("storage", 2),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "coordinator down",
			tenantID:   "1234",
			token:      func(tn *models.Tenant) string { return tn.Token.Valid },
			event:      map[string]string{"host": "web01", "pname": "producer1"},
			fwdErr:     griderr.Communication("routes fetch", assert.AnError),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, tenant := newIntakeHandler(t, &stubForwarder{err: tt.fwdErr})
			rec := postEvent(t, handler, tt.tenantID, tt.token(tenant), tt.event)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestIntake_InvalidBody(t *testing.T) {
	handler, tenant := newIntakeHandler(t, &stubForwarder{})

	req := httptest.NewRequest(http.MethodPost, "/v1/tenant/1234/events", bytes.NewBufferString("{"))
	req.Header.Set("X-Tenant-Token", tenant.Token.Valid)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRoutes(t *testing.T) {
	handler, _ := newIntakeHandler(t, &stubForwarder{})

	for _, method := range []string{http.MethodHead, http.MethodPut} {
		req := httptest.NewRequest(method, "/v1/routes/refresh", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
}

func TestBroadcast_NonBroadcasterRejects(t *testing.T) {
	handler, _ := newIntakeHandler(t, &stubForwarder{})

	body, _ := json.Marshal(models.BroadcastEnvelope{Broadcast: models.BroadcastMessage{
		Type:    models.BroadcastRoutes,
		Targets: []string{"worker-a:8762"},
	}})
	req := httptest.NewRequest(http.MethodPut, "/v1/broadcast", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBroadcast_QueuesTargets(t *testing.T) {
	rl := relay.New(time.Hour, time.Second, nil)
	processor := service.NewProcessor(models.PersonalityBroadcaster, nil, &stubIdentity{}, nil, nil, nil, nil, nil)
	handler := server.NewRouter(handlers.NewWorkerHandler(processor, nil, rl, nil))

	body, _ := json.Marshal(models.BroadcastEnvelope{Broadcast: models.BroadcastMessage{
		Type:    models.BroadcastRoutes,
		Targets: []string{"worker-a:8762", "worker-b:8762"},
	}})
	req := httptest.NewRequest(http.MethodPut, "/v1/broadcast", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 2, rl.Pending())
}

func TestBroadcast_EmptyTargets(t *testing.T) {
	rl := relay.New(time.Hour, time.Second, nil)
	processor := service.NewProcessor(models.PersonalityBroadcaster, nil, &stubIdentity{}, nil, nil, nil, nil, nil)
	handler := server.NewRouter(handlers.NewWorkerHandler(processor, nil, rl, nil))

	body, _ := json.Marshal(models.BroadcastEnvelope{})
	req := httptest.NewRequest(http.MethodPut, "/v1/broadcast", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
