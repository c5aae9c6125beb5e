package middleware

import (
	"strings"

	"autoparts/internal/apperr"
	"autoparts/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalUser   = "user"
	LocalUserID = "user_id"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*services.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return apperr.Auth("Access token required")
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUser, claims)
		c.Locals(LocalUserID, claims.UserID)
		return c.Next()
	}
}

// Claims returns the claims stored by AuthRequired.
func Claims(c *fiber.Ctx) (*services.Claims, bool) {
	claims, ok := c.Locals(LocalUser).(*services.Claims)
	return claims, ok
}
