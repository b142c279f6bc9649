package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_Validate(t *testing.T) {
	tok := &Token{Valid: "V", Previous: "P"}

	tests := []struct {
		name      string
		presented string
		want      bool
	}{
		{"current secret", "V", true},
		{"previous secret", "P", true},
		{"unknown secret", "X", false},
		{"empty secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Validate(tt.presented))
		})
	}
}

func TestToken_Validate_NoPrevious(t *testing.T) {
	tok := &Token{Valid: "V"}

	assert.True(t, tok.Validate("V"))
	// An empty Previous must not make the empty string validate.
	assert.False(t, tok.Validate(""))
}

func TestToken_Validate_Nil(t *testing.T) {
	var tok *Token
	assert.False(t, tok.Validate("anything"))
}

func TestToken_Rotate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := NewToken(now)
	oldValid := tok.Valid
	require.NotEmpty(t, oldValid)
	require.Empty(t, tok.Previous)

	later := now.Add(time.Hour)
	tok.Rotate(later)

	assert.Equal(t, oldValid, tok.Previous, "rotating remembers the prior secret")
	assert.NotEqual(t, oldValid, tok.Valid, "rotating mints a fresh secret")
	assert.Equal(t, later, tok.LastChanged)

	// The old secret still validates through the grace window.
	assert.True(t, tok.Validate(oldValid))
	assert.True(t, tok.Validate(tok.Valid))

	// A second rotation forgets the oldest secret.
	tok.Rotate(later.Add(time.Hour))
	assert.False(t, tok.Validate(oldValid))
}

func TestTenant_FindHost(t *testing.T) {
	tenant := &Tenant{
		Hosts: []Host{
			{ID: "h-1", Hostname: "web01"},
			{ID: "h-2", Hostname: "db01"},
		},
	}

	host := tenant.FindHost("db01")
	require.NotNil(t, host)
	assert.Equal(t, "h-2", host.ID)

	assert.Nil(t, tenant.FindHost("unknown"))
}

func TestTenant_FindProducer(t *testing.T) {
	tenant := &Tenant{
		Producers: []EventProducer{
			{ID: "p-1", Name: "producer1", Pattern: "syslog", Durable: true},
		},
	}

	p := tenant.FindProducer("producer1")
	require.NotNil(t, p)
	assert.True(t, p.Durable)

	assert.Nil(t, tenant.FindProducer("unknown"))
}

func TestWorkerStatus_Routable(t *testing.T) {
	assert.True(t, StatusOnline.Routable())
	assert.True(t, StatusDraining.Routable())
	assert.False(t, StatusNew.Routable())
	assert.False(t, StatusWaiting.Routable())
	assert.False(t, StatusOffline.Routable())
}

func TestRoutingTable_Lookup(t *testing.T) {
	rt := &RoutingTable{
		Routes: []Route{
			{ServiceDomain: "storage", Targets: []RouteTarget{{WorkerID: "w-1"}}},
		},
	}

	route := rt.Lookup("storage")
	require.NotNil(t, route)
	assert.Len(t, route.Targets, 1)

	assert.Nil(t, rt.Lookup("normalization"))

	var nilTable *RoutingTable
	assert.Nil(t, nilTable.Lookup("storage"))
}
