// Package sink indexes stored events into OpenSearch. Terminal
// storage-personality workers write here instead of routing onward.
package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/worker/internal/metrics"
)

type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	IndexPrefix   string
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           "https://localhost:9200",
		Username:      "admin",
		Password:      "admin",
		TLSSkipVerify: true,
		IndexPrefix:   "gridstream-events",
		FlushInterval: 5 * time.Second,
	}
}

// Store bulk-indexes events into daily indices named
// {prefix}-{tenant}-{yyyy.mm.dd}.
type Store struct {
	indexer opensearchutil.BulkIndexer
	config  Config
	logger  *slog.Logger
}

func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	indexer, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:        client,
		FlushInterval: cfg.FlushInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	return &Store{indexer: indexer, config: cfg, logger: logger}, nil
}

// Index queues one event for bulk indexing. Durable events use their
// job id as the document id so replays overwrite rather than duplicate.
func (s *Store) Index(ctx context.Context, event *models.Event) error {
	if s == nil {
		return nil
	}

	doc, err := json.Marshal(event)
	if err != nil {
		return err
	}

	tenantID := "unknown"
	docID := ""
	if event.Correlation != nil {
		tenantID = event.Correlation.TenantID
		docID = event.Correlation.JobID
	}
	index := fmt.Sprintf("%s-%s-%s", s.config.IndexPrefix, tenantID, time.Now().UTC().Format("2006.01.02"))

	err = s.indexer.Add(ctx, opensearchutil.BulkIndexerItem{
		Index:      index,
		Action:     "index",
		DocumentID: docID,
		Body:       bytes.NewReader(doc),
		OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, resp opensearchutil.BulkIndexerResponseItem, err error) {
			metrics.SinkIndexed.WithLabelValues("failed").Inc()
			if err != nil {
				s.logger.Error("sink index failed", slog.String("error", err.Error()))
			} else {
				s.logger.Error("sink index rejected",
					slog.String("index", item.Index),
					slog.String("reason", resp.Error.Reason))
			}
		},
		OnSuccess: func(ctx context.Context, item opensearchutil.BulkIndexerItem, resp opensearchutil.BulkIndexerResponseItem) {
			metrics.SinkIndexed.WithLabelValues("ok").Inc()
		},
	})
	if err != nil {
		metrics.SinkIndexed.WithLabelValues("failed").Inc()
		return fmt.Errorf("queue for indexing: %w", err)
	}
	return nil
}

// Close flushes pending documents and shuts the indexer down.
func (s *Store) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.indexer.Close(ctx)
}
