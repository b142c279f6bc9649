package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDurableJobSubject(t *testing.T) {
	assert.Equal(t, "jobs.events.durable.1234", DurableJobSubject("1234"))
}

func TestRoutingDLQSubject(t *testing.T) {
	assert.Equal(t, "routing.dlq.no_route", RoutingDLQSubject("no_route"))
}
