package models

// DestinationMarker is the per-sink delivery marker attached during
// correlation. Transaction fields start null and are filled in by the
// sink once delivery completes.
type DestinationMarker struct {
	TransactionID   *string `json:"transaction_id"`
	TransactionTime *string `json:"transaction_time"`
}

// CorrelationMetadata is embedded in an event once its tenant has been
// authenticated and its producer resolved.
type CorrelationMetadata struct {
	HostID       string                       `json:"host_id"`
	ProducerID   string                       `json:"producer_id,omitempty"`
	Pattern      string                       `json:"pattern"`
	Durable      bool                         `json:"durable"`
	Encrypted    bool                         `json:"encrypted"`
	TenantID     string                       `json:"tenant_id"`
	TenantName   string                       `json:"tenant_name,omitempty"`
	Destinations map[string]DestinationMarker `json:"destinations"`
	JobID        string                       `json:"job_id,omitempty"`
}

// Event is the inbound envelope as handed to the pipeline: the fields an
// ingestion adapter declares plus the free-form body, enriched in place
// with correlation metadata.
type Event struct {
	Host         string                 `json:"host"`
	ProducerName string                 `json:"pname"`
	Time         string                 `json:"time"`
	Severity     string                 `json:"severity,omitempty"`
	Body         map[string]interface{} `json:"body,omitempty"`
	Correlation  *CorrelationMetadata   `json:"gridstream.correlation,omitempty"`
}

// Durable reports whether this event requires job-tracked delivery.
func (e *Event) Durable() bool {
	return e.Correlation != nil && e.Correlation.Durable
}
