package correlator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
)

func testTenant() *models.Tenant {
	return &models.Tenant{
		TenantID: "1234",
		Name:     "acme",
		Token:    models.NewToken(time.Now()),
		Hosts: []models.Host{
			{ID: "h-1", Hostname: "web01"},
		},
		Producers: []models.EventProducer{
			{ID: "p-1", Name: "producer1", Pattern: "producer1", Durable: true, Sinks: []string{"search"}},
			{ID: "p-2", Name: "apache", Pattern: "apache-access", Durable: false},
		},
	}
}

func TestCorrelate_DurableProducer(t *testing.T) {
	tenant := testTenant()
	event := &models.Event{Host: "web01", ProducerName: "producer1", Time: "2026-08-30T12:00:00Z"}

	require.NoError(t, Correlate(tenant, event))
	meta := event.Correlation
	require.NotNil(t, meta)

	assert.Equal(t, "h-1", meta.HostID)
	assert.Equal(t, "p-1", meta.ProducerID)
	assert.Equal(t, "producer1", meta.Pattern)
	assert.Equal(t, "1234", meta.TenantID)
	assert.Equal(t, "acme", meta.TenantName)
	assert.True(t, meta.Durable)
	assert.NotEmpty(t, meta.JobID)
	assert.True(t, event.Durable())

	// Each declared sink gets a null delivery marker.
	require.Contains(t, meta.Destinations, "search")
	marker := meta.Destinations["search"]
	assert.Nil(t, marker.TransactionID)
	assert.Nil(t, marker.TransactionTime)
}

func TestCorrelate_NonDurableProducer(t *testing.T) {
	tenant := testTenant()
	event := &models.Event{Host: "web01", ProducerName: "apache"}

	require.NoError(t, Correlate(tenant, event))
	meta := event.Correlation

	assert.Equal(t, "apache-access", meta.Pattern)
	assert.False(t, meta.Durable)
	assert.Empty(t, meta.JobID)
	assert.Empty(t, meta.Destinations)
}

func TestCorrelate_UnknownProducerFallsBackToDefault(t *testing.T) {
	tenant := testTenant()
	event := &models.Event{Host: "web01", ProducerName: "mystery-daemon"}

	require.NoError(t, Correlate(tenant, event))
	meta := event.Correlation

	assert.Empty(t, meta.ProducerID)
	assert.Equal(t, models.DefaultProducerPattern, meta.Pattern)
	assert.False(t, meta.Durable)
	assert.Empty(t, meta.JobID)
	assert.Empty(t, meta.Destinations)
}

func TestCorrelate_UnregisteredHost(t *testing.T) {
	tenant := testTenant()
	event := &models.Event{Host: "rogue", ProducerName: "producer1"}

	err := Correlate(tenant, event)
	var validateErr *griderr.MessageValidationError
	require.ErrorAs(t, err, &validateErr)
	assert.Nil(t, event.Correlation)
}

func TestCorrelate_UniqueJobIDs(t *testing.T) {
	tenant := testTenant()

	a := &models.Event{Host: "web01", ProducerName: "producer1"}
	b := &models.Event{Host: "web01", ProducerName: "producer1"}
	require.NoError(t, Correlate(tenant, a))
	require.NoError(t, Correlate(tenant, b))

	assert.NotEqual(t, a.Correlation.JobID, b.Correlation.JobID)
}
