// Package dlq dead-letters events that exhausted every live downstream
// candidate. Backed by JetStream so entries are shared across workers.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gridstream-io/gridstream/common/messaging"
	"github.com/gridstream-io/gridstream/common/messaging/nats"
	"github.com/gridstream-io/gridstream/common/models"
)

// FailedEvent is one dead-lettered event with its failure context.
type FailedEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Event     *models.Event `json:"event"`
	Error     string        `json:"error"`
	Reason    string        `json:"reason"`
}

// Queue writes routing failures to the JetStream dead-letter stream.
// A nil Queue silently discards, so callers need no enabled check.
type Queue struct {
	js      *nats.JetStreamClient
	logger  *slog.Logger
	written uint64
}

func NewQueue(ctx context.Context, js *nats.JetStreamClient, logger *slog.Logger) (*Queue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := js.CreateOrUpdateStream(ctx, nats.RoutingDLQStream); err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}
	return &Queue{js: js, logger: logger}, nil
}

// Write dead-letters an event under routing.dlq.{reason}.
func (q *Queue) Write(ctx context.Context, event *models.Event, cause error, reason string) error {
	if q == nil {
		return nil
	}

	failed := FailedEvent{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Error:     cause.Error(),
		Reason:    reason,
	}
	data, err := json.Marshal(failed)
	if err != nil {
		return err
	}

	if _, err := q.js.PublishSync(ctx, messaging.RoutingDLQSubject(reason), data); err != nil {
		q.logger.Error("dlq publish failed",
			slog.String("reason", reason),
			slog.String("error", err.Error()))
		return err
	}

	atomic.AddUint64(&q.written, 1)
	return nil
}

// Written returns how many events this instance dead-lettered.
func (q *Queue) Written() uint64 {
	if q == nil {
		return 0
	}
	return atomic.LoadUint64(&q.written)
}
