package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gridstream-io/gridstream/common/logging"
	natsclient "github.com/gridstream-io/gridstream/common/messaging/nats"
	"github.com/gridstream-io/gridstream/common/models"
	"github.com/gridstream-io/gridstream/common/retry"
	"github.com/gridstream-io/gridstream/worker/internal/blacklist"
	"github.com/gridstream-io/gridstream/worker/internal/config"
	"github.com/gridstream-io/gridstream/worker/internal/coordclient"
	"github.com/gridstream-io/gridstream/worker/internal/dlq"
	"github.com/gridstream-io/gridstream/worker/internal/handlers"
	"github.com/gridstream-io/gridstream/worker/internal/identity"
	"github.com/gridstream-io/gridstream/worker/internal/jobs"
	"github.com/gridstream-io/gridstream/worker/internal/ratelimit"
	"github.com/gridstream-io/gridstream/worker/internal/relay"
	"github.com/gridstream-io/gridstream/worker/internal/router"
	"github.com/gridstream-io/gridstream/worker/internal/server"
	"github.com/gridstream-io/gridstream/worker/internal/service"
	"github.com/gridstream-io/gridstream/worker/internal/sink"
	"github.com/gridstream-io/gridstream/worker/internal/status"
	"github.com/gridstream-io/gridstream/worker/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	personality := models.Personality(cfg.Personality)

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("worker"), logging.Personality(cfg.Personality))
	logging.SetDefault(logger)

	slog.Info("Starting Worker service",
		slog.String("personality", cfg.Personality),
		slog.Int("port", cfg.Server.Port),
		slog.Int("data_port", cfg.Server.DataPort),
		slog.String("coordinator", cfg.Coordinator.URL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := retry.Policy{
		Tries:   cfg.Coordinator.RetryTries,
		Delay:   cfg.Coordinator.RetryDelay,
		Backoff: cfg.Coordinator.RetryBackoff,
	}
	if err := policy.Validate(); err != nil {
		slog.Error("Invalid retry policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	coord := coordclient.New(cfg.Coordinator.URL, coordclient.Credentials{
		WorkerID:    cfg.Coordinator.WorkerID,
		WorkerToken: cfg.Coordinator.WorkerToken,
	}, cfg.Coordinator.Timeout, policy)

	callback := cfg.Server.Callback
	if callback == "" {
		hostname, _ := os.Hostname()
		callback = hostname + ":" + strconv.Itoa(cfg.Server.Port)
	}

	// Pair on first start; configured credentials skip pairing.
	if cfg.Coordinator.WorkerID == "" {
		hostname, _ := os.Hostname()
		creds, err := coord.Register(ctx, hostname, callback, "", personality)
		if err != nil {
			slog.Error("Pairing failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		coord.SetCredentials(creds)
		slog.Info("Paired with coordinator", slog.String("worker_id", creds.WorkerID))
	}

	// Rate limiter: Redis sliding window, or no-op when disabled
	var limiter ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.NewRedisRateLimiter(cfg.RateLimit.RedisURL, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		if err != nil {
			slog.Error("Failed to connect rate limiter", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	defer limiter.Close()

	cache := identity.NewCache(cfg.Identity.CacheTTL)
	go cache.StartCleanup(ctx, time.Minute)
	ident := identity.NewService(cache, coord)

	// Optional NATS-backed jobs and dead-letter streams
	var jobPublisher *jobs.Publisher
	var deadLetter *dlq.Queue
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "gridstream-worker"
		js, err := natsclient.NewJetStreamClient(natsCfg)
		if err != nil {
			slog.Error("Failed to connect NATS", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer js.Close()

		if jobPublisher, err = jobs.NewPublisher(ctx, js); err != nil {
			slog.Error("Failed to init jobs stream", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if deadLetter, err = dlq.NewQueue(ctx, js, logger.Logger); err != nil {
			slog.Error("Failed to init dlq stream", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Sink: required for storage personality
	var store *sink.Store
	if cfg.Sink.Enabled {
		store, err = sink.NewStore(sink.Config{
			URL:           cfg.Sink.URL,
			Username:      cfg.Sink.Username,
			Password:      cfg.Sink.Password,
			TLSSkipVerify: cfg.Sink.TLSSkipVerify,
			IndexPrefix:   cfg.Sink.IndexPrefix,
			FlushInterval: cfg.Sink.FlushInterval,
		}, logger.Logger)
		if err != nil {
			slog.Error("Failed to init sink", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer store.Close(context.Background())
	} else if personality == models.PersonalityStorage {
		slog.Error("Storage personality requires sink.enabled")
		os.Exit(1)
	}

	bl := blacklist.New(cfg.Routing.BlacklistTTL)
	tcp := transport.NewTCP(cfg.Routing.DialTimeout, cfg.Routing.DialTimeout)

	var rt *router.Router
	if personality != models.PersonalityStorage && personality != models.PersonalityBroadcaster {
		rt = router.New(coord, tcp, bl, cfg.Routing.DataPort, logger.Logger)
		defer rt.Close()
	}

	var broadcastRelay *relay.Relay
	if personality == models.PersonalityBroadcaster {
		broadcastRelay = relay.New(cfg.Relay.FlushInterval, cfg.Relay.NudgeTimeout, logger.Logger)
		go broadcastRelay.Start(ctx)
		defer broadcastRelay.Stop()
	}

	var forwarder service.Forwarder
	if rt != nil {
		forwarder = rt
	}
	var jp service.JobPublisher
	if jobPublisher != nil {
		jp = jobPublisher
	}
	var dl service.DeadLetter
	if deadLetter != nil {
		dl = deadLetter
	}
	var indexer service.Indexer
	if store != nil {
		indexer = store
	}
	processor := service.NewProcessor(personality, limiter, ident, forwarder, jp, dl, indexer, logger.Logger)

	// Framed TCP intake for inter-worker traffic
	listener, err := transport.NewListener(fmt.Sprintf(":%d", cfg.Server.DataPort), func(ctx context.Context, event *models.Event) {
		if err := processor.Dispatch(ctx, event); err != nil {
			slog.Warn("Dispatch failed", slog.String("error", err.Error()))
		}
	}, logger.Logger)
	if err != nil {
		slog.Error("Failed to bind data port", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go listener.Serve(ctx)
	defer listener.Close()

	h := handlers.NewWorkerHandler(processor, rt, broadcastRelay, logger.Logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Worker HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	publisher := status.NewPublisher(coord, cfg.Status.Interval, logger.Logger)
	go publisher.Start(ctx)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	publisher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", slog.String("error", err.Error()))
	}

	slog.Info("Worker stopped")
}
