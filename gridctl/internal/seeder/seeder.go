package seeder

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"

	"github.com/gridstream-io/gridstream/common/models"
)

// Scenario describes a batch of synthetic events. Fields left empty in a
// scenario file fall back to the defaults.
type Scenario struct {
	Count     int           `yaml:"count"`
	Spread    time.Duration `yaml:"spread"`
	Producers []string      `yaml:"producers"`
	Hosts     []string      `yaml:"hosts"`
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Count:     100,
		Spread:    time.Hour,
		Producers: []string{"apache", "nginx", "sshd", "postfix"},
		Hosts:     []string{"web01", "web02", "app01", "db01"},
	}
}

// LoadScenario reads a scenario YAML file, overlaying it on the defaults.
func LoadScenario(path string) (*Scenario, error) {
	scenario := DefaultScenario()
	if path == "" {
		return scenario, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if err := yaml.Unmarshal(data, scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	if scenario.Count <= 0 {
		return nil, fmt.Errorf("scenario count must be positive")
	}
	if len(scenario.Producers) == 0 || len(scenario.Hosts) == 0 {
		return nil, fmt.Errorf("scenario needs at least one producer and one host")
	}
	return scenario, nil
}

// GenerateEvent produces the index-th event of a scenario run. Event
// times are spread backwards from now with jitter so the batch does not
// arrive as a single spike.
func GenerateEvent(s *Scenario, index int) *models.Event {
	now := time.Now()

	eventTime := now
	if s.Spread > 0 && s.Count > 0 {
		baseInterval := float64(s.Spread) / float64(s.Count)
		baseOffset := time.Duration(float64(index) * baseInterval)

		jitterRange := baseInterval * 0.4
		jitter := time.Duration((rand.Float64()*2.0 - 1.0) * jitterRange)

		totalOffset := baseOffset + jitter
		if totalOffset < 0 {
			totalOffset = 0
		}
		if totalOffset > s.Spread {
			totalOffset = s.Spread
		}
		eventTime = now.Add(-(s.Spread - totalOffset))
	}

	producer := s.Producers[rand.Intn(len(s.Producers))]

	return &models.Event{
		Host:         s.Hosts[rand.Intn(len(s.Hosts))],
		ProducerName: producer,
		Time:         eventTime.UTC().Format(time.RFC3339),
		Severity:     randomSeverity(),
		Body:         generateBody(producer),
	}
}

func randomSeverity() string {
	severities := []string{"debug", "info", "info", "info", "notice", "warning", "err"}
	return severities[rand.Intn(len(severities))]
}

func generateBody(producer string) map[string]interface{} {
	switch producer {
	case "apache", "nginx":
		return map[string]interface{}{
			"message":     fmt.Sprintf("%s %s %s", gofakeit.HTTPMethod(), gofakeit.URL(), gofakeit.HTTPVersion()),
			"client_ip":   gofakeit.IPv4Address(),
			"status_code": gofakeit.HTTPStatusCodeSimple(),
			"bytes":       gofakeit.Number(200, 50000),
			"user_agent":  gofakeit.UserAgent(),
		}
	case "sshd":
		return map[string]interface{}{
			"message":   fmt.Sprintf("Accepted publickey for %s from %s port %d", gofakeit.Username(), gofakeit.IPv4Address(), gofakeit.Number(1024, 65535)),
			"user":      gofakeit.Username(),
			"source_ip": gofakeit.IPv4Address(),
		}
	case "postfix":
		return map[string]interface{}{
			"message":   fmt.Sprintf("delivered mail for %s", gofakeit.Email()),
			"recipient": gofakeit.Email(),
			"size":      gofakeit.Number(1000, 100000),
		}
	default:
		return map[string]interface{}{
			"message": gofakeit.Sentence(8),
		}
	}
}
