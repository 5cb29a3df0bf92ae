package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/config"
	"github.com/coursehub/checkout-system/internal/handler"
	"github.com/coursehub/checkout-system/internal/notify"
	"github.com/coursehub/checkout-system/internal/repository"
	"github.com/coursehub/checkout-system/internal/service"
	"github.com/coursehub/checkout-system/internal/validator"
	"github.com/coursehub/checkout-system/pkg/database"
	"github.com/coursehub/checkout-system/pkg/metrics"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Course Checkout Engine",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator and metrics
	validate := validator.New()
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	// Notification publisher (no-op when no brokers are configured)
	notifier := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
	defer func() { _ = notifier.Close() }()

	// Repositories
	couponRepo := repository.NewCouponRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	fulfillmentRepo := repository.NewFulfillmentRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	// Services (layered architecture)
	fulfillmentSvc := service.NewFulfillmentService(pool, fulfillmentRepo, courseRepo, cartRepo, notifier)
	checkoutSvc := service.NewCheckoutService(pool, courseRepo, cartRepo, couponRepo, paymentRepo, outboxRepo, fulfillmentSvc)
	couponSvc := service.NewCouponService(pool, couponRepo)
	cartSvc := service.NewCartService(pool, cartRepo, courseRepo, couponRepo)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(checkoutSvc, validate, checkoutMetrics)
	couponHandler := handler.NewCouponHandler(couponSvc, validate)
	cartHandler := handler.NewCartHandler(cartSvc, validate)
	healthHandler := handler.NewHealthHandler(pool)

	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Checkout routes
	app.Post("/api/payments", paymentHandler.CreatePayment)
	app.Get("/api/payments", paymentHandler.ListPayments)

	// Coupon routes
	app.Post("/api/coupons", couponHandler.CreateCoupon)
	app.Get("/api/coupons/:code", couponHandler.GetCouponByCode)
	app.Post("/api/coupons/attach", couponHandler.AttachCoupon)
	app.Post("/api/coupons/promote", couponHandler.PromoteCoupon)

	// Cart routes
	app.Post("/api/cart", cartHandler.AddToCart)
	app.Get("/api/cart/:userId", cartHandler.ListCart)
	app.Delete("/api/cart/:userId/:courseId", cartHandler.RemoveFromCart)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
