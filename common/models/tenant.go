package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultProducerPattern is the pattern assigned to events whose declared
// program name matches no registered producer.
const DefaultProducerPattern = "default"

// Token carries a tenant's message authentication secrets. Exactly one
// rotation step is remembered: rotating moves the current secret into
// Previous, so in-flight caches keep validating through the grace window.
type Token struct {
	Valid       string    `json:"valid"`
	Previous    string    `json:"previous,omitempty"`
	LastChanged time.Time `json:"last_changed"`
}

// NewToken mints a token with a fresh secret and no rotation history.
func NewToken(now time.Time) *Token {
	return &Token{
		Valid:       newSecret(),
		LastChanged: now.UTC(),
	}
}

// Validate reports whether the presented secret matches the current or
// the immediately prior secret. Empty presented secrets never validate.
func (t *Token) Validate(presented string) bool {
	if t == nil || presented == "" {
		return false
	}
	if presented == t.Valid {
		return true
	}
	return t.Previous != "" && presented == t.Previous
}

// Rotate replaces the current secret, remembering it as Previous.
func (t *Token) Rotate(now time.Time) {
	t.Previous = t.Valid
	t.Valid = newSecret()
	t.LastChanged = now.UTC()
}

func newSecret() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// EventProducer describes a registered event source for a tenant. Events
// are matched against producers by their declared program name.
type EventProducer struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern"`
	Durable   bool     `json:"durable"`
	Encrypted bool     `json:"encrypted"`
	Sinks     []string `json:"sinks,omitempty"`
}

// Host is a machine registered under a tenant, used to resolve host_id
// during correlation.
type Host struct {
	ID        string   `json:"id"`
	Hostname  string   `json:"hostname"`
	IPv4      string   `json:"ip_address_v4,omitempty"`
	IPv6      string   `json:"ip_address_v6,omitempty"`
	ProfileID string   `json:"profile_id,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
}

// Tenant is the unit of multi-tenancy. The coordinator owns the canonical
// record; workers hold read-only cached copies.
type Tenant struct {
	TenantID  string          `json:"tenant_id"`
	Name      string          `json:"name,omitempty"`
	Producers []EventProducer `json:"event_producers"`
	Hosts     []Host          `json:"hosts"`
	Token     *Token          `json:"token"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// FindHost returns the host matching hostname, or nil.
func (t *Tenant) FindHost(hostname string) *Host {
	for i := range t.Hosts {
		if t.Hosts[i].Hostname == hostname {
			return &t.Hosts[i]
		}
	}
	return nil
}

// FindProducer returns the producer matching the declared program name,
// or nil when the event should fall back to the default producer.
func (t *Tenant) FindProducer(name string) *EventProducer {
	for i := range t.Producers {
		if t.Producers[i].Name == name {
			return &t.Producers[i]
		}
	}
	return nil
}
