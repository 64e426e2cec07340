package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ljmarquez/latch"
)

// requireAuth validates the session token and stores the account and
// session in the request context for downstream handlers.
func (a *Adapter) requireAuth(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return handleAuthError(c, latch.ErrMissingAuthHeader)
		}

		sessionData, err := l.Handler.GetSession(c.Context(), token)
		if err != nil {
			return handleAuthError(c, err)
		}

		c.Locals("account", sessionData.Account)
		c.Locals("session", sessionData.Session)

		return c.Next()
	}
}

// extractToken checks the Authorization header (Bearer token) first,
// then falls back to the auth cookie.
func extractToken(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}

	return c.Cookies("auth_token")
}
