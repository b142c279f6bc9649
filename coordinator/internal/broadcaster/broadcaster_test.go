package broadcaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
)

type relayServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	received []models.BroadcastEnvelope
	fail     bool
}

func newRelayServer(t *testing.T) *relayServer {
	t.Helper()
	rs := &relayServer{}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v1/broadcast" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		rs.mu.Lock()
		defer rs.mu.Unlock()
		if rs.fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var env models.BroadcastEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rs.received = append(rs.received, env)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

// callback returns the server's host:port, which is what workers
// register as their callback address.
func (rs *relayServer) callback() string {
	return strings.TrimPrefix(rs.srv.URL, "http://")
}

func (rs *relayServer) envelopes() []models.BroadcastEnvelope {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]models.BroadcastEnvelope(nil), rs.received...)
}

func (rs *relayServer) setFail(fail bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.fail = fail
}

func seed(t *testing.T, repo *repository.InMemoryRepository, id string, p models.Personality, status models.WorkerStatus, callback string) {
	t.Helper()
	require.NoError(t, repo.CreateWorker(context.Background(), &models.Worker{
		WorkerID:    id,
		Hostname:    "host-" + id,
		Callback:    callback,
		Personality: p,
		Status:      status,
	}))
}

func TestNotifyTopologyChange_HandsOffToRelay(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	relay := newRelayServer(t)

	seed(t, repo, "w-corr", models.PersonalityCorrelation, models.StatusOnline, "corr-host:8762")
	seed(t, repo, "w-syslog", models.PersonalitySyslog, models.StatusOnline, "syslog-host:8762")
	seed(t, repo, "w-relay", models.PersonalityBroadcaster, models.StatusOnline, relay.callback())
	seed(t, repo, "w-store", models.PersonalityStorage, models.StatusOffline, "store-host:8762")

	b := New(repo, time.Minute, 5*time.Minute, time.Second, nil)
	b.NotifyTopologyChange(context.Background(), &models.Worker{
		WorkerID:    "w-store",
		Personality: models.PersonalityStorage,
	})

	envs := relay.envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, models.BroadcastRoutes, envs[0].Broadcast.Type)
	// Correlation and syslog both route toward storage; the offline
	// worker itself is not a target.
	assert.ElementsMatch(t, []string{"corr-host:8762", "syslog-host:8762"}, envs[0].Broadcast.Targets)
}

func TestNotifyTopologyChange_StopsAtFirstAcceptingRelay(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	first := newRelayServer(t)
	second := newRelayServer(t)
	first.setFail(true)

	seed(t, repo, "w-corr", models.PersonalityCorrelation, models.StatusOnline, "corr-host:8762")
	seed(t, repo, "a-relay", models.PersonalityBroadcaster, models.StatusOnline, first.callback())
	seed(t, repo, "b-relay", models.PersonalityBroadcaster, models.StatusOnline, second.callback())

	b := New(repo, time.Minute, 5*time.Minute, time.Second, nil)
	b.NotifyTopologyChange(context.Background(), &models.Worker{
		WorkerID:    "w-store",
		Personality: models.PersonalityStorage,
	})

	assert.Len(t, second.envelopes(), 1)
	assert.Empty(t, first.envelopes())
}

func TestNotifyTopologyChange_TerminalPersonalityNoBroadcast(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	relay := newRelayServer(t)
	seed(t, repo, "w-relay", models.PersonalityBroadcaster, models.StatusOnline, relay.callback())

	b := New(repo, time.Minute, 5*time.Minute, time.Second, nil)

	// Nothing routes toward a broadcaster, so its demotion is silent.
	b.NotifyTopologyChange(context.Background(), &models.Worker{
		WorkerID:    "w-gone",
		Personality: models.PersonalityBroadcaster,
	})
	assert.Empty(t, relay.envelopes())
}

func TestRebroadcast_RepeatsWithinHorizonThenForgets(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	relay := newRelayServer(t)

	seed(t, repo, "w-corr", models.PersonalityCorrelation, models.StatusOnline, "corr-host:8762")
	seed(t, repo, "w-relay", models.PersonalityBroadcaster, models.StatusOnline, relay.callback())

	b := New(repo, time.Minute, 5*time.Minute, time.Second, nil)
	b.NotifyTopologyChange(context.Background(), &models.Worker{
		WorkerID:    "w-store",
		Personality: models.PersonalityStorage,
	})
	require.Len(t, relay.envelopes(), 1)

	b.rebroadcast(context.Background())
	assert.Len(t, relay.envelopes(), 2)

	// Age the demotion past the horizon; the next pass drops it.
	b.mu.Lock()
	d := b.recent["w-store"]
	d.at = time.Now().Add(-10 * time.Minute)
	b.recent["w-store"] = d
	b.mu.Unlock()

	b.rebroadcast(context.Background())
	assert.Len(t, relay.envelopes(), 2)
	b.mu.Lock()
	assert.Empty(t, b.recent)
	b.mu.Unlock()
}

func TestStartStop(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	b := New(repo, 10*time.Millisecond, time.Minute, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go b.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	b.Stop()
}
