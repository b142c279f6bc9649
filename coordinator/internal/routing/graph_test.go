package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridstream-io/gridstream/common/models"
)

func TestNextHop(t *testing.T) {
	tests := []struct {
		name        string
		personality models.Personality
		wantOK      bool
		wantHop     Hop
	}{
		{
			name:        "correlation routes to storage with normalization fallback",
			personality: models.PersonalityCorrelation,
			wantOK:      true,
			wantHop:     Hop{Downstream: models.PersonalityStorage, Alternate: models.PersonalityNormalization},
		},
		{
			name:        "syslog routes to storage with normalization fallback",
			personality: models.PersonalitySyslog,
			wantOK:      true,
			wantHop:     Hop{Downstream: models.PersonalityStorage, Alternate: models.PersonalityNormalization},
		},
		{
			name:        "normalization routes to storage only",
			personality: models.PersonalityNormalization,
			wantOK:      true,
			wantHop:     Hop{Downstream: models.PersonalityStorage},
		},
		{
			name:        "storage is terminal",
			personality: models.PersonalityStorage,
			wantOK:      false,
		},
		{
			name:        "broadcaster is terminal",
			personality: models.PersonalityBroadcaster,
			wantOK:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hop, ok := NextHop(tt.personality)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantHop, hop)
			}
		})
	}
}

func TestUpstreams(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.Personality{
			models.PersonalityCorrelation,
			models.PersonalityNormalization,
			models.PersonalitySyslog,
		},
		Upstreams(models.PersonalityStorage))

	assert.ElementsMatch(t,
		[]models.Personality{
			models.PersonalityCorrelation,
			models.PersonalitySyslog,
		},
		Upstreams(models.PersonalityNormalization))

	assert.Empty(t, Upstreams(models.PersonalityCorrelation))
	assert.Empty(t, Upstreams(models.PersonalityBroadcaster))
}

func TestDeriveTable(t *testing.T) {
	registry := []*models.Worker{
		{WorkerID: "store-1", Hostname: "a", Personality: models.PersonalityStorage, Status: models.StatusOnline, IPv4: "10.0.0.1"},
		{WorkerID: "store-2", Hostname: "b", Personality: models.PersonalityStorage, Status: models.StatusDraining},
		{WorkerID: "store-3", Hostname: "c", Personality: models.PersonalityStorage, Status: models.StatusOffline},
		{WorkerID: "norm-1", Hostname: "d", Personality: models.PersonalityNormalization, Status: models.StatusOnline},
		{WorkerID: "corr-1", Hostname: "e", Personality: models.PersonalityCorrelation, Status: models.StatusOnline},
	}

	table := DeriveTable(&models.Worker{WorkerID: "corr-1", Personality: models.PersonalityCorrelation}, registry)
	assert.Len(t, table.Routes, 2)

	storage := table.Lookup("storage")
	if assert.NotNil(t, storage) {
		ids := make([]string, 0, len(storage.Targets))
		for _, tgt := range storage.Targets {
			ids = append(ids, tgt.WorkerID)
		}
		// Offline workers never appear; draining ones still do.
		assert.Equal(t, []string{"store-1", "store-2"}, ids)
		assert.Equal(t, "10.0.0.1", storage.Targets[0].IPv4)
	}

	norm := table.Lookup("normalization")
	if assert.NotNil(t, norm) {
		assert.Len(t, norm.Targets, 1)
		assert.Equal(t, "norm-1", norm.Targets[0].WorkerID)
	}
}

func TestDeriveTable_ExcludesSelf(t *testing.T) {
	registry := []*models.Worker{
		{WorkerID: "norm-1", Personality: models.PersonalityNormalization, Status: models.StatusOnline},
		{WorkerID: "norm-2", Personality: models.PersonalityNormalization, Status: models.StatusOnline},
	}

	table := DeriveTable(&models.Worker{WorkerID: "norm-1", Personality: models.PersonalitySyslog}, registry)
	norm := table.Lookup("normalization")
	if assert.NotNil(t, norm) {
		assert.Len(t, norm.Targets, 1)
		assert.Equal(t, "norm-2", norm.Targets[0].WorkerID)
	}
}

func TestDeriveTable_TerminalPersonalityEmpty(t *testing.T) {
	table := DeriveTable(&models.Worker{WorkerID: "s", Personality: models.PersonalityStorage}, nil)
	assert.Empty(t, table.Routes)
}
