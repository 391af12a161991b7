// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"tierpay/internal/domain/credit"
	"tierpay/internal/handlers"
	"tierpay/internal/middleware"
	"tierpay/internal/models"
	"tierpay/internal/repositories/cache"
	"tierpay/internal/services/notification"
	"tierpay/internal/services/session"
	"tierpay/internal/services/settlement"
	"tierpay/internal/services/terminal"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps carries the wired services into the router.
type Deps struct {
	DB         *gorm.DB
	Cache      *cache.CacheService
	Terminals  terminal.Service
	Sessions   session.Service
	Settlement settlement.Service
	Notifier   notification.Service
	Tables     *credit.Tables
	// Auth defaults to JWT validation with utils.ParseToken
	Auth *middleware.AuthMiddleware
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Deps) {
	if deps.Auth == nil {
		deps.Auth = middleware.NewAuthMiddleware(nil)
	}

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Cache)
	terminalHandler := handlers.NewTerminalHandler(deps.Terminals)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Notifier)
	creditHandler := handlers.NewCreditHandler(deps.Tables, deps.Sessions, deps.Settlement)
	salesHandler := handlers.NewSalesHandler(deps.Settlement)

	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to TierPay API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/terminal/login", terminalHandler.Login)
	api.Get("/credit/tiers/:category", creditHandler.Tiers)

	protected := api.Group("", deps.Auth.Handler)

	setupMerchantRoutes(protected, terminalHandler, sessionHandler, salesHandler)
	setupSessionRoutes(protected, sessionHandler)
	setupCreditRoutes(protected, creditHandler)

	protected.Get("/admin/cache-stats", middleware.RequireRole(models.RoleAdmin), healthHandler.CacheStats)
}

func setupMerchantRoutes(router fiber.Router, terminals *handlers.TerminalHandler, sessions *handlers.SessionHandler, sales *handlers.SalesHandler) {
	merchant := router.Group("/merchant")

	// Terminal registry, merchant accounts only
	manage := []fiber.Handler{
		middleware.RequireRole(models.RoleMerchant),
		middleware.HasPermission(models.PermissionTerminalManage),
	}
	merchant.Post("/terminals", append(manage, terminals.Create)...)
	merchant.Get("/terminals", append(manage, terminals.List)...)
	merchant.Delete("/terminals/:id", append(manage, terminals.Remove)...)
	merchant.Post("/terminals/:id/rotate", append(manage, terminals.RotateCode)...)
	merchant.Get("/scan-code", append(manage, terminals.MerchantCode)...)
	merchant.Post("/scan-code/rotate", append(manage, terminals.RotateMerchantCode)...)
	merchant.Get("/sales", append(manage, sales.List)...)

	// Sessions, for the merchant or one of its terminals
	operator := middleware.RequireRole(models.RoleMerchant, models.RoleTerminal)
	merchant.Post("/sessions", operator, middleware.HasPermission(models.PermissionSessionOperate), sessions.Start)
	merchant.Get("/sessions", operator, middleware.HasPermission(models.PermissionSessionRead), sessions.ListActive)
}

func setupSessionRoutes(router fiber.Router, h *handlers.SessionHandler) {
	sessions := router.Group("/sessions")

	sessions.Post("/scan", middleware.HasPermission(models.PermissionSessionScan), h.Scan)
	sessions.Get("/", middleware.HasPermission(models.PermissionSessionRead), h.ListActive)

	sessions.Post("/:id/amount", middleware.HasPermission(models.PermissionSessionOperate), h.ProposeAmount)
	sessions.Post("/:id/approve", middleware.HasPermission(models.PermissionSessionOperate), h.Approve)
	sessions.Post("/:id/cancel", middleware.HasPermission(models.PermissionSessionOperate), h.Cancel)
	sessions.Post("/:id/confirm-payment", middleware.HasPermission(models.PermissionSessionOperate), h.ConfirmPayment)
	sessions.Post("/:id/finalize", middleware.HasPermission(models.PermissionSessionOperate), h.Finalize)

	sessions.Get("/:id", middleware.HasPermission(models.PermissionSessionRead), h.View)
	sessions.Get("/:id/settlement", middleware.HasPermission(models.PermissionSessionRead), h.Settlement)
	sessions.Get("/:id/history", middleware.HasPermission(models.PermissionSessionRead), h.History)
	sessions.Get("/:id/events", middleware.HasPermission(models.PermissionSessionRead), h.Stream)
}

func setupCreditRoutes(router fiber.Router, h *handlers.CreditHandler) {
	credit := router.Group("/credit")

	credit.Post("/quote", middleware.HasPermission(models.PermissionCreditRead), h.Quote)
	credit.Get("/commitments", middleware.HasPermission(models.PermissionCreditRead), h.Commitments)
}
