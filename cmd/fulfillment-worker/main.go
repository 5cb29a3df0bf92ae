package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/config"
	"github.com/coursehub/checkout-system/internal/notify"
	"github.com/coursehub/checkout-system/internal/repository"
	"github.com/coursehub/checkout-system/internal/service"
	"github.com/coursehub/checkout-system/internal/worker"
	"github.com/coursehub/checkout-system/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	notifier := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
	defer func() { _ = notifier.Close() }()

	courseRepo := repository.NewCourseRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	fulfillmentRepo := repository.NewFulfillmentRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	fulfillmentSvc := service.NewFulfillmentService(pool, fulfillmentRepo, courseRepo, cartRepo, notifier)

	w := worker.New(
		outboxRepo,
		fulfillmentSvc,
		time.Duration(cfg.Worker.PollInterval)*time.Second,
		cfg.Worker.BatchSize,
	)
	w.Run(ctx)
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
