package models

// BroadcastType distinguishes broadcast payloads. Only routing
// invalidations exist today.
type BroadcastType string

const BroadcastRoutes BroadcastType = "ROUTES"

// BroadcastMessage is the payload handed to a broadcaster-personality
// worker: the set of upstream callback addresses to nudge.
type BroadcastMessage struct {
	Type    BroadcastType `json:"type"`
	Targets []string      `json:"targets"`
}

// BroadcastEnvelope wraps a BroadcastMessage on the wire.
type BroadcastEnvelope struct {
	Broadcast BroadcastMessage `json:"broadcast"`
}
