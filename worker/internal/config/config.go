package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gridstream-io/gridstream/common/models"
)

type Config struct {
	Personality string            `mapstructure:"personality"`
	Server      ServerConfig      `mapstructure:"server"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Routing     RoutingConfig     `mapstructure:"routing"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Sink        SinkConfig        `mapstructure:"sink"`
	Status      StatusConfig      `mapstructure:"status"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	// Port serves the HTTP surface: intake, callbacks, health, metrics.
	Port int `mapstructure:"port"`

	// DataPort is the framed TCP intake listener for inter-worker traffic.
	DataPort int `mapstructure:"data_port"`

	// Callback is the host:port other grid members use to reach this
	// worker's HTTP surface. Defaults to hostname:port when empty.
	Callback string `mapstructure:"callback"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type CoordinatorConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Retry policy for coordinator calls.
	RetryTries   int           `mapstructure:"retry_tries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	RetryBackoff float64       `mapstructure:"retry_backoff"`

	// Credentials issued at pairing time. Empty means the worker pairs
	// itself on startup and persists nothing.
	WorkerID    string `mapstructure:"worker_id"`
	WorkerToken string `mapstructure:"worker_token"`
}

type IdentityConfig struct {
	// CacheTTL bounds how long validated tokens and tenant graphs are
	// trusted without re-checking the coordinator.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RoutingConfig struct {
	// BlacklistTTL is how long a failed downstream worker is skipped.
	BlacklistTTL time.Duration `mapstructure:"blacklist_ttl"`

	// DialTimeout bounds each downstream connection attempt.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// DataPort is the framed TCP port downstream workers listen on.
	DataPort int `mapstructure:"data_port"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type SinkConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	TLSSkipVerify bool          `mapstructure:"tls_skip_verify"`
	IndexPrefix   string        `mapstructure:"index_prefix"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type StatusConfig struct {
	// Interval between heartbeat publishes.
	Interval time.Duration `mapstructure:"interval"`
}

type RelayConfig struct {
	// FlushInterval is how often queued topology nudges are delivered.
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	// NudgeTimeout bounds each callback nudge request.
	NudgeTimeout time.Duration `mapstructure:"nudge_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("personality", "correlation")
	v.SetDefault("server.port", 8762)
	v.SetDefault("server.data_port", 9514)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("coordinator.url", "http://localhost:8761")
	v.SetDefault("coordinator.timeout", "5s")
	v.SetDefault("coordinator.retry_tries", 3)
	v.SetDefault("coordinator.retry_delay", "500ms")
	v.SetDefault("coordinator.retry_backoff", 2.0)
	v.SetDefault("identity.cache_ttl", "900s")
	v.SetDefault("routing.blacklist_ttl", "120s")
	v.SetDefault("routing.dial_timeout", "3s")
	v.SetDefault("routing.data_port", 9514)
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.redis_url", "redis://localhost:6379/0")
	v.SetDefault("rate_limit.limit", 1000)
	v.SetDefault("rate_limit.window", "1s")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("sink.enabled", false)
	v.SetDefault("sink.url", "https://localhost:9200")
	v.SetDefault("sink.username", "admin")
	v.SetDefault("sink.password", "admin")
	v.SetDefault("sink.tls_skip_verify", true)
	v.SetDefault("sink.index_prefix", "gridstream-events")
	v.SetDefault("sink.flush_interval", "5s")
	v.SetDefault("status.interval", "30s")
	v.SetDefault("relay.flush_interval", "5s")
	v.SetDefault("relay.nudge_timeout", "3s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gridstream/worker")
	}

	v.SetEnvPrefix("WORKER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !models.Personality(cfg.Personality).Valid() {
		return nil, fmt.Errorf("unknown personality %q", cfg.Personality)
	}

	return &cfg, nil
}
