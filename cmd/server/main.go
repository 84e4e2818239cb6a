// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/clubreserve/internal/audit"
	"github.com/codr1/clubreserve/internal/booking/lock"
	"github.com/codr1/clubreserve/internal/config"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/email"
	"github.com/codr1/clubreserve/internal/metrics"
	"github.com/codr1/clubreserve/internal/ratelimit"
	"github.com/codr1/clubreserve/internal/reservation"
	"github.com/codr1/clubreserve/internal/scheduler"
)

func setupLogger(environment, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		zerolog.SetGlobalLevel(parsed)
	}
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config/app.yaml"), "Path to the YAML or TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment, cfg.App.LogLevel)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	observer, closeObservers, err := newObservers(cfg, database)
	if err != nil {
		return err
	}
	defer closeObservers()

	var m *metrics.Metrics
	if cfg.Features.EnableMetrics {
		m = metrics.New(strings.ReplaceAll(cfg.App.Name, "-", "_"))
	}

	var notifier *email.Notifier
	deps := reservation.Deps{
		DB:            database,
		Locker:        locker,
		Observer:      observer,
		Metrics:       m,
		Currency:      cfg.Booking.Currency,
		DefaultRegion: cfg.Booking.DefaultRegion,
	}
	if cfg.Email.Enabled {
		client, err := email.NewSESClient(ctx, email.SESOptions{
			Region:          cfg.Email.Region,
			Sender:          cfg.Email.Sender,
			AccessKeyID:     cfg.Email.AccessKeyID,
			SecretAccessKey: cfg.Email.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("init ses client: %w", err)
		}
		if notifier, err = email.NewNotifier(client, cfg.Email.Sender); err != nil {
			return err
		}
		deps.Notifier = notifier
	}

	engine, err := reservation.NewEngine(deps)
	if err != nil {
		return fmt.Errorf("init reservation engine: %w", err)
	}

	if err := scheduler.Init(); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		return err
	}
	if err := scheduler.RegisterPricingExpiry(svc, database, cfg.Scheduler.PricingExpiryCron); err != nil {
		return fmt.Errorf("register pricing expiry job: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	limiter := ratelimit.New(&ratelimit.Config{
		WritesPerWindow: cfg.RateLimit.WritesPerMinute,
		Window:          time.Minute,
		TrustProxy:      cfg.RateLimit.TrustProxy,
	})
	defer limiter.Close()

	server, err := newServer(cfg, database, engine, m, limiter)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	shutdownTimeout := time.Duration(cfg.App.ShutdownTimeoutSeconds) * time.Second

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		if notifier != nil {
			if err := notifier.Wait(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Pending confirmation emails were not sent")
			}
		}
		return nil
	})

	return g.Wait()
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.Booking.LockBackend != config.LockBackendRedis {
		return lock.NewMemoryLocker(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	locker, err := lock.NewRedisLocker(client, time.Duration(cfg.Booking.LockTTLSeconds)*time.Second)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis slot locks")
	return locker, func() { client.Close() }, nil
}

// newObservers always records audit rows; events are also published to
// RabbitMQ when AMQP_URL is set.
func newObservers(cfg *config.Config, database *db.DB) (audit.Observer, func(), error) {
	stored, err := audit.NewStoreObserver(database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Events.AMQPURL == "" {
		return stored, func() {}, nil
	}

	publisher, err := audit.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		return nil, nil, fmt.Errorf("init event publisher: %w", err)
	}
	log.Info().Str("exchange", cfg.Events.Exchange).Msg("Publishing reservation events")
	return audit.Multi{stored, publisher}, func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}, nil
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
