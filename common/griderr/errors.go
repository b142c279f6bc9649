// Package griderr defines the error taxonomy shared by grid services.
//
// Validation and authentication failures are terminal and surfaced to the
// event originator. Coordinator communication failures are transient and
// retried by the caller's backoff policy. Routing failures mean every live
// downstream candidate was exhausted; the caller decides whether to drop,
// requeue, or surface them.
package griderr

import "fmt"

// MessageValidationError indicates a malformed or incomplete event,
// such as a host name not registered under the tenant.
type MessageValidationError struct {
	Msg string
}

func (e *MessageValidationError) Error() string { return e.Msg }

// Validation builds a MessageValidationError.
func Validation(format string, args ...any) error {
	return &MessageValidationError{Msg: fmt.Sprintf(format, args...)}
}

// MessageAuthenticationError indicates bad or expired credentials.
type MessageAuthenticationError struct {
	TenantID string
}

func (e *MessageAuthenticationError) Error() string {
	return fmt.Sprintf("message authentication failed for tenant %s", e.TenantID)
}

// Authentication builds a MessageAuthenticationError for a tenant.
func Authentication(tenantID string) error {
	return &MessageAuthenticationError{TenantID: tenantID}
}

// ResourceNotFoundError indicates a resource unknown to the coordinator.
type ResourceNotFoundError struct {
	Resource string
	ID       string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a ResourceNotFoundError.
func NotFound(resource, id string) error {
	return &ResourceNotFoundError{Resource: resource, ID: id}
}

// CoordinatorCommunicationError indicates a network or availability
// failure talking to the coordinator, after retries were exhausted.
type CoordinatorCommunicationError struct {
	Op  string
	Err error
}

func (e *CoordinatorCommunicationError) Error() string {
	return fmt.Sprintf("coordinator %s failed: %v", e.Op, e.Err)
}

func (e *CoordinatorCommunicationError) Unwrap() error { return e.Err }

// Communication wraps err as a CoordinatorCommunicationError for op.
func Communication(op string, err error) error {
	return &CoordinatorCommunicationError{Op: op, Err: err}
}

// RoutingError indicates no live downstream candidate remained for a
// service domain.
type RoutingError struct {
	ServiceDomain string
	Tried         int
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no reachable worker for service domain %s (%d candidates tried)", e.ServiceDomain, e.Tried)
}

// Routing builds a RoutingError for a service domain.
func Routing(serviceDomain string, tried int) error {
	return &RoutingError{ServiceDomain: serviceDomain, Tried: tried}
}
