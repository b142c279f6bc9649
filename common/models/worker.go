package models

import "time"

// Personality is the role a worker process plays in the pipeline.
type Personality string

const (
	PersonalityCorrelation   Personality = "correlation"
	PersonalityNormalization Personality = "normalization"
	PersonalityStorage       Personality = "storage"
	PersonalitySyslog        Personality = "syslog"
	PersonalityBroadcaster   Personality = "broadcaster"
)

// Valid reports whether p names a known personality.
func (p Personality) Valid() bool {
	switch p {
	case PersonalityCorrelation, PersonalityNormalization, PersonalityStorage,
		PersonalitySyslog, PersonalityBroadcaster:
		return true
	}
	return false
}

func (p Personality) String() string { return string(p) }

// WorkerStatus is the coordinator-tracked lifecycle state of a worker.
// Workers are never hard-deleted; they transition between statuses.
type WorkerStatus string

const (
	StatusNew      WorkerStatus = "new"
	StatusWaiting  WorkerStatus = "waiting"
	StatusOnline   WorkerStatus = "online"
	StatusDraining WorkerStatus = "draining"
	StatusOffline  WorkerStatus = "offline"
)

// Valid reports whether s names a known worker status.
func (s WorkerStatus) Valid() bool {
	switch s {
	case StatusNew, StatusWaiting, StatusOnline, StatusDraining, StatusOffline:
		return true
	}
	return false
}

// Routable reports whether a worker in this status may appear in
// routing tables.
func (s WorkerStatus) Routable() bool {
	return s == StatusOnline || s == StatusDraining
}

// SystemInfo is the snapshot a worker reports with each heartbeat.
type SystemInfo struct {
	Hostname   string `json:"hostname,omitempty"`
	OSType     string `json:"os_type,omitempty"`
	PID        int    `json:"pid,omitempty"`
	Goroutines int    `json:"goroutines,omitempty"`
	MemAllocMB uint64 `json:"mem_alloc_mb,omitempty"`
}

// Worker is a registered data-plane process.
type Worker struct {
	WorkerID     string       `json:"worker_id"`
	WorkerToken  string       `json:"worker_token,omitempty"`
	Hostname     string       `json:"hostname"`
	Callback     string       `json:"callback"`
	IPv4         string       `json:"ip_address_v4,omitempty"`
	IPv6         string       `json:"ip_address_v6,omitempty"`
	Personality  Personality  `json:"personality"`
	Status       WorkerStatus `json:"status"`
	SystemInfo   SystemInfo   `json:"system_info,omitempty"`
	RegisteredAt time.Time    `json:"registered_at,omitempty"`
	LastSeen     time.Time    `json:"last_seen,omitempty"`
}

// RouteTarget is one candidate next-hop worker for a service domain.
type RouteTarget struct {
	WorkerID    string      `json:"worker_id"`
	Hostname    string      `json:"hostname"`
	IPv4        string      `json:"ip_address_v4,omitempty"`
	IPv6        string      `json:"ip_address_v6,omitempty"`
	Personality Personality `json:"personality"`
}

// Route is the ordered candidate list for one downstream service domain.
type Route struct {
	ServiceDomain string        `json:"service_domain"`
	Targets       []RouteTarget `json:"targets"`
}

// RoutingTable is the coordinator-derived routing topology handed to a
// worker: one Route per downstream service domain it may target.
type RoutingTable struct {
	Routes []Route `json:"routes"`
}

// Lookup returns the route for a service domain, or nil.
func (rt *RoutingTable) Lookup(serviceDomain string) *Route {
	if rt == nil {
		return nil
	}
	for i := range rt.Routes {
		if rt.Routes[i].ServiceDomain == serviceDomain {
			return &rt.Routes[i]
		}
	}
	return nil
}

// WatchlistItem accumulates unreachability reports for one worker on the
// coordinator side.
type WatchlistItem struct {
	WorkerID    string    `json:"worker_id"`
	WatchCount  int       `json:"watch_count"`
	LastChanged time.Time `json:"last_changed"`
}
