package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gridstream-io/gridstream/common/messaging"
)

// JetStreamClient extends Client with JetStream persistence.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig is the subset of jetstream.StreamConfig the grid uses.
type StreamConfig struct {
	Name      string
	Subjects  []string
	MaxAge    time.Duration
	MaxBytes  int64
	MaxMsgs   int64
	Retention jetstream.RetentionPolicy
	Storage   jetstream.StorageType
}

// DurableJobsStream captures durable delivery jobs until a job worker
// picks them up.
var DurableJobsStream = StreamConfig{
	Name:      "GRID_JOBS",
	Subjects:  []string{messaging.SubjectJobsDurable + ".>"},
	MaxAge:    24 * time.Hour,
	MaxBytes:  1024 * 1024 * 1024,
	MaxMsgs:   1000000,
	Retention: jetstream.WorkQueuePolicy,
	Storage:   jetstream.FileStorage,
}

// RoutingDLQStream captures events that exhausted every live downstream
// candidate, for operator inspection and replay.
var RoutingDLQStream = StreamConfig{
	Name:      "GRID_ROUTING_DLQ",
	Subjects:  []string{messaging.SubjectRoutingDLQ + ".>"},
	MaxAge:    72 * time.Hour,
	MaxBytes:  1024 * 1024 * 1024,
	MaxMsgs:   1000000,
	Retention: jetstream.LimitsPolicy,
	Storage:   jetstream.FileStorage,
}

// NewJetStreamClient connects and opens a JetStream context.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{Client: client, js: js}, nil
}

// CreateOrUpdateStream idempotently ensures a stream exists with cfg.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		MaxMsgs:   cfg.MaxMsgs,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}
	return stream, nil
}

// PublishSync publishes and waits for the stream acknowledgment.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	return c.js.Publish(ctx, subject, data)
}
