package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	callerKey = "user_id"
	loginPath = "/auth/login"
)

// JWTMiddleware accepts access tokens only and stores user_id in locals.
// Unauthenticated callers get 401 with the login path in the body.
func JWTMiddleware(secret string) fiber.Handler {
	issuer := NewIssuer(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return unauthenticated(c, "missing bearer token")
		}
		claims, err := issuer.Verify(token, AccessToken)
		if err != nil {
			return unauthenticated(c, err.Error())
		}
		SetCaller(c, claims.UserID)
		return c.Next()
	}
}

// SetCaller records the authenticated caller for downstream handlers.
func SetCaller(c *fiber.Ctx, userID string) {
	c.Locals(callerKey, userID)
}

// CallerID returns the authenticated caller set by JWTMiddleware.
func CallerID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(callerKey).(string)
	return id, ok && id != ""
}

func unauthenticated(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": reason,
		"login": loginPath,
	})
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
