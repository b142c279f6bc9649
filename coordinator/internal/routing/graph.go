// Package routing derives per-worker routing tables from the static
// personality graph and the current worker registry.
package routing

import "github.com/gridstream-io/gridstream/common/models"

// Hop names a personality's downstream service domain and its alternate.
// Personalities absent from the graph are terminal.
type Hop struct {
	Downstream models.Personality
	Alternate  models.Personality
}

// graph is the static personality pipeline, resolved at compile time.
// Storage and broadcaster personalities are terminal.
var graph = map[models.Personality]Hop{
	models.PersonalityCorrelation: {
		Downstream: models.PersonalityStorage,
		Alternate:  models.PersonalityNormalization,
	},
	models.PersonalitySyslog: {
		Downstream: models.PersonalityStorage,
		Alternate:  models.PersonalityNormalization,
	},
	models.PersonalityNormalization: {
		Downstream: models.PersonalityStorage,
	},
}

// NextHop returns the downstream hop for a personality, or ok=false for
// terminal personalities.
func NextHop(p models.Personality) (Hop, bool) {
	hop, ok := graph[p]
	return hop, ok
}

// Upstreams returns the personalities whose downstream or alternate
// target is the given personality. Used to decide who must be told when
// a worker of that personality is demoted.
func Upstreams(target models.Personality) []models.Personality {
	var out []models.Personality
	for _, p := range []models.Personality{
		models.PersonalityCorrelation,
		models.PersonalityNormalization,
		models.PersonalityStorage,
		models.PersonalitySyslog,
		models.PersonalityBroadcaster,
	} {
		hop, ok := graph[p]
		if !ok {
			continue
		}
		if hop.Downstream == target || hop.Alternate == target {
			out = append(out, p)
		}
	}
	return out
}

// DeriveTable builds the routing table for a worker: one route per service
// domain its personality may target, with ordered candidates drawn from
// workers whose status is online or draining. The requesting worker never
// appears as its own candidate.
func DeriveTable(forWorker *models.Worker, registry []*models.Worker) *models.RoutingTable {
	hop, ok := NextHop(forWorker.Personality)
	if !ok {
		return &models.RoutingTable{}
	}

	domains := []models.Personality{hop.Downstream}
	if hop.Alternate != "" {
		domains = append(domains, hop.Alternate)
	}

	table := &models.RoutingTable{}
	for _, domain := range domains {
		route := models.Route{ServiceDomain: string(domain)}
		for _, w := range registry {
			if w.Personality != domain || !w.Status.Routable() || w.WorkerID == forWorker.WorkerID {
				continue
			}
			route.Targets = append(route.Targets, models.RouteTarget{
				WorkerID:    w.WorkerID,
				Hostname:    w.Hostname,
				IPv4:        w.IPv4,
				IPv6:        w.IPv6,
				Personality: w.Personality,
			})
		}
		table.Routes = append(table.Routes, route)
	}
	return table
}
