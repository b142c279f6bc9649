// Package correlator stamps authenticated events with the routing and
// delivery metadata the rest of the pipeline keys on.
package correlator

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridstream-io/gridstream/common/griderr"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
)

// Correlate resolves the event's host and producer against the tenant
// graph and attaches correlation metadata in place.
//
// The declared host must be registered under the tenant. An unknown
// program name is not an error: the event falls back to an implicit
// non-durable producer with the default pattern and no sinks. Durable
// events are minted a job id for delivery tracking.
func Correlate(tenant *models.Tenant, event *models.Event) error {
	start := time.Now()
	defer func() {
		metrics.CorrelationDuration.Observe(time.Since(start).Seconds())
	}()

	host := tenant.FindHost(event.Host)
	if host == nil {
		return griderr.Validation("host %q not registered for tenant %s", event.Host, tenant.TenantID)
	}

	meta := &models.CorrelationMetadata{
		HostID:       host.ID,
		TenantID:     tenant.TenantID,
		TenantName:   tenant.Name,
		Pattern:      models.DefaultProducerPattern,
		Destinations: make(map[string]models.DestinationMarker),
	}

	if producer := tenant.FindProducer(event.ProducerName); producer != nil {
		meta.ProducerID = producer.ID
		meta.Pattern = producer.Pattern
		meta.Durable = producer.Durable
		meta.Encrypted = producer.Encrypted
		for _, sink := range producer.Sinks {
			meta.Destinations[sink] = models.DestinationMarker{}
		}
	}

	if meta.Durable {
		meta.JobID = uuid.New().String()
	}

	event.Correlation = meta
	return nil
}
