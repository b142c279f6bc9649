package seeder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Defaults(t *testing.T) {
	scenario, err := LoadScenario("")

	require.NoError(t, err)
	assert.Equal(t, 100, scenario.Count)
	assert.Equal(t, time.Hour, scenario.Spread)
	assert.NotEmpty(t, scenario.Producers)
	assert.NotEmpty(t, scenario.Hosts)
}

func TestLoadScenario_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
count: 10
spread: 5m
producers:
  - customapp
hosts:
  - edge01
  - edge02
`), 0600))

	scenario, err := LoadScenario(path)

	require.NoError(t, err)
	assert.Equal(t, 10, scenario.Count)
	assert.Equal(t, 5*time.Minute, scenario.Spread)
	assert.Equal(t, []string{"customapp"}, scenario.Producers)
	assert.Equal(t, []string{"edge01", "edge02"}, scenario.Hosts)
}

func TestLoadScenario_RejectsEmptyProducers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("producers: []\n"), 0600))

	_, err := LoadScenario(path)

	assert.Error(t, err)
}

func TestGenerateEvent_UsesScenarioVocabulary(t *testing.T) {
	scenario := &Scenario{
		Count:     50,
		Spread:    time.Hour,
		Producers: []string{"apache"},
		Hosts:     []string{"web01"},
	}

	for i := 0; i < 50; i++ {
		event := GenerateEvent(scenario, i)

		assert.Equal(t, "web01", event.Host)
		assert.Equal(t, "apache", event.ProducerName)
		assert.NotEmpty(t, event.Severity)
		assert.Contains(t, event.Body, "message")

		ts, err := time.Parse(time.RFC3339, event.Time)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), ts, time.Hour+time.Minute)
	}
}

func TestGenerateEvent_ZeroSpreadUsesNow(t *testing.T) {
	scenario := &Scenario{
		Count:     1,
		Producers: []string{"sshd"},
		Hosts:     []string{"bastion"},
	}

	event := GenerateEvent(scenario, 0)

	ts, err := time.Parse(time.RFC3339, event.Time)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}
