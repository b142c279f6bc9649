// Package messaging defines standard subject names for the grid message bus.
package messaging

// Subject constants for the grid message bus.
// Follow the pattern: {domain}.{resource}.{qualifier}
const (
	// Durable delivery jobs - events whose producer requires job-tracked
	// delivery (append .{tenant_id} for a specific tenant)
	SubjectJobsDurable = "jobs.events.durable"

	// Routing dead letter - events that exhausted every live downstream
	// candidate (append .{reason})
	SubjectRoutingDLQ = "routing.dlq"
)

// Queue group names for load-balanced consumers.
const (
	QueueJobWorkers = "job-workers" // Pool of durable-delivery processors
)

// DurableJobSubject returns the job subject for a specific tenant.
// Example: jobs.events.durable.1234
func DurableJobSubject(tenantID string) string {
	return SubjectJobsDurable + "." + tenantID
}

// RoutingDLQSubject returns the dead-letter subject for a failure reason.
// Example: routing.dlq.no_route
func RoutingDLQSubject(reason string) string {
	return SubjectRoutingDLQ + "." + reason
}
