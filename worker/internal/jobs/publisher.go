// Package jobs publishes durable-delivery job records to JetStream so
// delivery survives worker restarts.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gridstream-io/gridstream/common/messaging"
	"github.com/gridstream-io/gridstream/common/messaging/nats"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
)

// Record is one durable delivery job on the stream.
type Record struct {
	JobID     string        `json:"job_id"`
	TenantID  string        `json:"tenant_id"`
	CreatedAt time.Time     `json:"created_at"`
	Event     *models.Event `json:"event"`
}

// Publisher writes job records to the durable jobs stream.
type Publisher struct {
	js *nats.JetStreamClient
}

// NewPublisher ensures the jobs stream exists and returns a Publisher.
func NewPublisher(ctx context.Context, js *nats.JetStreamClient) (*Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}
	if _, err := js.CreateOrUpdateStream(ctx, nats.DurableJobsStream); err != nil {
		return nil, fmt.Errorf("create jobs stream: %w", err)
	}
	return &Publisher{js: js}, nil
}

// Publish records a durable job for an event that already carries
// correlation metadata with a job id.
func (p *Publisher) Publish(ctx context.Context, event *models.Event) error {
	if p == nil {
		return nil
	}
	if event.Correlation == nil || event.Correlation.JobID == "" {
		return fmt.Errorf("event has no job id")
	}

	record := Record{
		JobID:     event.Correlation.JobID,
		TenantID:  event.Correlation.TenantID,
		CreatedAt: time.Now().UTC(),
		Event:     event,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	subject := messaging.DurableJobSubject(event.Correlation.TenantID)
	if _, err := p.js.PublishSync(ctx, subject, data); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}

	metrics.DurableJobsPublished.Inc()
	return nil
}
