// Package nats provides the NATS-backed implementation of the grid
// message bus.
package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection for grid services.
type Client struct {
	conn *nats.Conn
}

// Config holds NATS connection settings.
type Config struct {
	URL  string
	Name string

	// MaxReconnects of -1 retries forever.
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns connection settings suitable for a local grid.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "gridstream-client",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewClient connects to NATS with reconnect logging wired up.
func NewClient(cfg Config) (*Client, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	c.conn.Close()
	return nil
}
