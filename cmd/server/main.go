package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dramirezdlp99/sistema-reservas/internal/api"
	"github.com/dramirezdlp99/sistema-reservas/internal/config"
	"github.com/dramirezdlp99/sistema-reservas/internal/database"
	"github.com/dramirezdlp99/sistema-reservas/internal/events"
	"github.com/dramirezdlp99/sistema-reservas/internal/metrics"
	"github.com/dramirezdlp99/sistema-reservas/internal/repository"
	"github.com/dramirezdlp99/sistema-reservas/internal/service"
	"github.com/dramirezdlp99/sistema-reservas/internal/sweeper"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RESERVAS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	// Slot locks: redis when configured, process-local otherwise. The
	// failover locker keeps serving from the local one when redis drops.
	var rdb *redis.Client
	var locker repository.Locker = repository.NewLocalLocker()
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		locker = repository.NewFailoverLocker(
			repository.NewRedisLocker(rdb, cfg.LockTTL()),
			repository.NewLocalLocker(),
			logger,
		)
	}

	bus := events.NewEventBus()
	notifier := events.NewNotifier(bus, events.NotifierConfig{
		Rate:      cfg.Notifications.Rate,
		Burst:     cfg.Notifications.Burst,
		QueueSize: cfg.Notifications.QueueSize,
	}, events.LogDelivery(logger), logger)

	reservations := service.NewReservationService(db, locker, bus, service.Policy{
		MaxAdvanceDays:   cfg.Booking.MaxAdvanceDays,
		MaxActivePerUser: cfg.Booking.MaxActivePerUser,
		LockWait:         cfg.LockWait(),
		Retries:          cfg.ConflictRetries(),
	}, &logger)
	catalog := service.NewCatalogService(db, &logger)
	reports := service.NewReportService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(reservations, cfg.SweepInterval(), &logger)
		sw.Start(ctx)
		defer sw.Wait()
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Backup, &logger)
		go backup.Run(ctx, cfg.BackupInterval())
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(
		fmt.Sprintf(":%d", cfg.Server.Port),
		reservations, catalog, reports,
		cfg.Booking.AutoConfirmDefault,
		&logger,
	)

	logger.Info().Msg("reservation server started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
	notifier.Wait()
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
