package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/utils"
)

const (
	userContextKey   = "currentUserID"
	claimsContextKey = "currentClaims"

	// SessionCookie carries the access token for browser clients.
	SessionCookie = "session"
)

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

func extractToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if cookie := c.Cookies(SessionCookie); cookie != "" {
			return cookie, nil
		}
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// AuthMiddleware validates JWT tokens from the Authorization header or the
// session cookie and loads the user ID and claims into context.
func AuthMiddleware(secret string, checker RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := extractToken(c)
		if err != nil {
			return err
		}

		claims, err := utils.ParseToken(secret, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		userID, err := claims.ParsedUserID()
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		if checker != nil && claims.ID != "" {
			revoked, err := checker.IsTokenRevoked(c.UserContext(), claims.ID)
			if err != nil {
				return err
			}
			if revoked {
				return fiber.NewError(fiber.StatusUnauthorized, "token has been revoked")
			}
		}

		c.Locals(userContextKey, userID)
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// RequireRole rejects requests whose token does not carry role.
// It must run after AuthMiddleware.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := GetClaims(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		if claims.Role != string(role) {
			return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetClaims returns the parsed token claims of the request.
func GetClaims(c *fiber.Ctx) (*utils.Claims, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.Claims)
	return claims, ok && claims != nil
}

// IsAdmin reports whether the authenticated user has the ADMIN role.
func IsAdmin(c *fiber.Ctx) bool {
	claims, ok := GetClaims(c)
	return ok && claims.Role == string(models.RoleAdmin)
}
