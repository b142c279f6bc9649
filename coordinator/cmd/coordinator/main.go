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
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/gridstream-io/gridstream/common/logging"
	"github.com/gridstream-io/gridstream/coordinator/internal/broadcaster"
	"github.com/gridstream-io/gridstream/coordinator/internal/config"
	"github.com/gridstream-io/gridstream/coordinator/internal/handlers"
	"github.com/gridstream-io/gridstream/coordinator/internal/middleware"
	"github.com/gridstream-io/gridstream/coordinator/internal/repository"
	"github.com/gridstream-io/gridstream/coordinator/internal/server"
	"github.com/gridstream-io/gridstream/coordinator/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("coordinator"))
	logging.SetDefault(logger)

	slog.Info("Starting Coordinator service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.Int("watchlist_threshold", cfg.Watchlist.Threshold),
		slog.Duration("tolerance_window", cfg.Watchlist.ToleranceWindow),
	)

	// Repository: Postgres with migrations, or in-memory for development
	var repo repository.Repository
	if cfg.Database.Enabled {
		m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
		if err != nil {
			slog.Error("Failed to initialize migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			slog.Error("Failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		version, dirty, err := m.Version()
		if err != nil {
			slog.Warn("Could not get migration version", slog.String("error", err.Error()))
		} else {
			slog.Info("Database migration complete",
				slog.Uint64("version", uint64(version)),
				slog.Bool("dirty", dirty),
			)
		}

		pg, err := repository.NewPostgresRepository(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Error("Failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		repo = pg
	} else {
		slog.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	}
	defer repo.Close()

	// Broadcaster with periodic re-broadcast
	bcast := broadcaster.New(repo,
		cfg.Broadcast.Interval, cfg.Broadcast.Horizon, cfg.Broadcast.Timeout,
		logger.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bcast.Start(ctx)
	defer bcast.Stop()

	// Watchlist tracker feeding the broadcaster
	tracker := watchlist.NewTracker(repo, bcast,
		cfg.Watchlist.Threshold, cfg.Watchlist.ToleranceWindow, logger.Logger)

	workerAuth := middleware.NewWorkerAuth(repo)
	adminAuth := middleware.NewAdminAuth(cfg.Admin.JWTSecret)
	handler := handlers.NewCoordinatorHandler(repo, tracker, adminAuth, cfg.Admin, logger.Logger)
	router := server.NewRouter(handler, workerAuth, adminAuth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Coordinator listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down coordinator")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Coordinator stopped")
}
