// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tierpay/internal/config"
	"tierpay/internal/domain/credit"
	"tierpay/internal/logging"
	"tierpay/internal/metrics"
	"tierpay/internal/repositories"
	"tierpay/internal/routes"
	"tierpay/internal/services/notification"
	"tierpay/internal/services/payment"
	"tierpay/internal/services/session"
	"tierpay/internal/services/settlement"
	"tierpay/internal/services/terminal"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration and logging
// - Initializes database and redis connections
// - Wires the terminal, session and settlement services
// - Starts the idle session sweeper
// - Serves until SIGINT/SIGTERM
func main() {
	config.LoadEnv()

	logging.Setup(logging.Options{
		Service: "tierpay-api",
		Env:     config.GetEnv("ENV", "development"),
		File:    config.GetEnv("LOG_FILE", ""),
		Debug:   config.GetBoolEnv("LOG_DEBUG", !config.IsProduction()),
	})

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closeConnections()

	tables := credit.DefaultTables()
	if path := config.GetEnv("CREDIT_TIERS_FILE", ""); path != "" {
		loaded, err := credit.LoadFile(path)
		if err != nil {
			log.Fatalf("Failed to load credit tiers from %s: %v", path, err)
		}
		tables = loaded
		log.Printf("credit tiers loaded from %s", path)
	}

	var broker notification.Broker
	if repositories.CacheService != nil {
		broker = notification.NewRedisBroker(repositories.CacheService.Client(), "tierpay:")
	}
	notifier := notification.NewService(broker)

	registry := terminal.NewService(
		repositories.DB,
		repositories.NewTerminalRepository(repositories.DB),
		repositories.NewBindingRepository(repositories.DB),
		repositories.CacheService,
		terminal.Config{Limit: config.GetIntEnv("TERMINAL_LIMIT_PER_MERCHANT", terminal.DefaultTerminalLimit)},
	)

	settler := settlement.NewService(
		repositories.NewSettlementRepository(repositories.DB),
		settlement.Config{BillingPeriod: config.GetDurationEnv("SETTLEMENT_BILLING_PERIOD", settlement.DefaultBillingPeriod)},
	)

	idleTimeout := config.GetDurationEnv("SESSION_IDLE_TIMEOUT", 0)
	sessions := session.NewService(
		repositories.DB,
		session.Dependencies{
			Sessions:       repositories.NewSessionRepository(repositories.DB),
			Registry:       registry,
			Settlement:     settler,
			Tiers:          session.NewCreditTierProvider(repositories.NewCreditProfileRepository(repositories.DB), tables),
			PaymentMethods: repositories.NewPaymentMethodRepository(repositories.DB, repositories.CacheService),
			Notifier:       notifier,
			Proofs:         payment.NewStripeInspector(config.GetEnv("STRIPE_SECRET_KEY", ""), nil),
		},
		session.Config{
			Currency:    config.GetEnv("CURRENCY", "USD"),
			IdleTimeout: idleTimeout,
		},
		metrics.Session(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if idleTimeout > 0 {
		interval := config.GetDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute)
		go session.RunSweeper(ctx, sessions, interval)
		log.Printf("idle session sweeper running every %s (timeout %s)", interval, idleTimeout)
	}

	app := fiber.New(fiber.Config{
		AppName:               "tierpay",
		DisableStartupMessage: config.IsProduction(),
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          0, // event streams stay open
		IdleTimeout:           2 * time.Minute,
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(config.GetListEnv("CORS_ORIGINS", []string{"http://localhost:5173"}), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Scan codes and terminal credentials are guessable only by brute force
	for _, path := range []string{"/api/terminal/login", "/api/sessions/scan"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        10,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
				})
			},
		}))
	}

	routes.SetupRoutes(app, routes.Deps{
		DB:         repositories.DB,
		Cache:      repositories.CacheService,
		Terminals:  registry,
		Sessions:   sessions,
		Settlement: settler,
		Notifier:   notifier,
		Tables:     tables,
	})

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	log.Printf("listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

func closeConnections() {
	if repositories.DB != nil {
		sqlDB, err := repositories.DB.DB()
		if err != nil {
			log.Printf("Failed to get database instance: %v", err)
		} else if err := sqlDB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}

	if repositories.CacheService != nil {
		if err := repositories.CacheService.Close(); err != nil {
			log.Printf("Failed to close Redis connection: %v", err)
		}
	}
}
