// Package middleware provides HTTP middleware components for the application.
// It includes authentication and authorization for the fiber router.
package middleware

import (
	"log"
	"strings"

	"tierpay/internal/models"
	"tierpay/internal/utils"
	"tierpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// TokenParser validates a bearer token and returns its claims.
type TokenParser func(token string) (*models.UserClaims, error)

// AuthMiddleware handles JWT token validation.
// It extracts the JWT token from the Authorization header, validates it,
// and adds the user claims to the request context.
type AuthMiddleware struct {
	parse TokenParser
}

// NewAuthMiddleware creates the middleware. A nil parser uses utils.ParseToken.
func NewAuthMiddleware(parse TokenParser) *AuthMiddleware {
	if parse == nil {
		parse = func(token string) (*models.UserClaims, error) {
			_, claims, err := utils.ParseToken(token)
			return claims, err
		}
	}
	return &AuthMiddleware{parse: parse}
}

// Handler validates JWT tokens and adds claims to the request context.
// It checks for:
// - Presence of Authorization header with Bearer token
// - Valid JWT signature, issuer and expiry
// - A terminal token carrying its terminal id
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}

	claims, err := m.parse(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		log.Printf("token validation error: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	if claims.Role == models.RoleTerminal && claims.TerminalID == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid terminal token"})
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)

	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return response.Unauthorized(c)
		}

		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	}
}

// RequireRole only lets the listed roles through.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return response.Unauthorized(c)
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	}
}
