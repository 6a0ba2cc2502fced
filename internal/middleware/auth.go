package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/krishna/internal/config"
	"github.com/example/krishna/internal/utils"
)

const claimsContextKey = "currentClaims"

// TokenCookieName is the cookie the session token is mirrored into.
const TokenCookieName = "token"

// AuthMiddleware validates session tokens and loads the authenticated
// claims into context. The token is read from the Authorization header,
// falling back to the session cookie.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Cookies(TokenCookieName)
		}
		if tokenString == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization token")
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, tokenString)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetCurrentClaims extracts the authenticated claims from context.
func GetCurrentClaims(c *fiber.Ctx) (utils.TokenClaims, bool) {
	value := c.Locals(claimsContextKey)
	if value == nil {
		return utils.TokenClaims{}, false
	}

	if claims, ok := value.(utils.TokenClaims); ok {
		return claims, true
	}

	return utils.TokenClaims{}, false
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims, ok := GetCurrentClaims(c)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}
