package handlers

import (
	"context"
	"time"

	"tierpay/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewHealthHandler builds the health probe. cache may be nil.
func NewHealthHandler(db *gorm.DB, cache *cache.CacheService) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	services := fiber.Map{"database": "connected", "redis": "disabled"}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		services["database"] = "unavailable"
		status = fiber.StatusServiceUnavailable
	}
	if h.cache != nil {
		services["redis"] = "connected"
		if err := h.cache.HealthCheck(ctx); err != nil {
			services["redis"] = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   state,
		"version":  "1.0.0",
		"services": services,
	})
}

// CacheStats reports the redis connection pool.
func (h *HealthHandler) CacheStats(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(fiber.Map{"pool_stats": nil})
	}
	poolStats := h.cache.GetStats(c.UserContext())

	return c.JSON(fiber.Map{
		"pool_stats": fiber.Map{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"timeouts":    poolStats.Timeouts,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		},
	})
}
