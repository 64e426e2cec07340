package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/ljmarquez/latch"
)

func (a *Adapter) signUp(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input latch.SignUpInput
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c, "invalid request body")
		}

		result, err := l.Handler.SignUp(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusCreated).JSON(result)
	}
}

func (a *Adapter) signIn(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input latch.SignInInput
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c, "invalid request body")
		}

		result, err := l.Handler.SignIn(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(result)
	}
}

func (a *Adapter) signInWithProvider(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input struct {
			Assertion string `json:"assertion"`
		}
		if err := c.Bind().Body(&input); err != nil || input.Assertion == "" {
			return badRequest(c, "invalid request body")
		}

		identity, err := l.Verifier.Verify(c.Context(), input.Assertion)
		if err != nil {
			return handleAuthError(c, latch.ErrInvalidCredentials)
		}

		result, err := l.Handler.SignInWithIdentity(c.Context(), *identity, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return handleAuthError(c, err)
		}

		status := http.StatusOK
		if result.IsNewUser {
			status = http.StatusCreated
		}
		return c.Status(status).JSON(result)
	}
}

func (a *Adapter) signOut(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := l.Handler.SignOut(c.Context(), extractToken(c)); err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(map[string]string{
			"message": "signed out successfully",
		})
	}
}

func (a *Adapter) signOutAll(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		session, ok := c.Locals("session").(*latch.Session)
		if !ok {
			return handleAuthError(c, latch.ErrSessionNotFound)
		}

		if err := l.Handler.SignOutAll(c.Context(), session.AccountID); err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(map[string]string{
			"message": "signed out everywhere",
		})
	}
}

func (a *Adapter) getSession(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		session, err := l.Handler.GetSession(c.Context(), extractToken(c))
		if err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(session)
	}
}

func (a *Adapter) setPassword(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input struct {
			NewPassword string `json:"newPassword"`
		}
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c, "invalid request body")
		}

		session, ok := c.Locals("session").(*latch.Session)
		if !ok {
			return handleAuthError(c, latch.ErrSessionNotFound)
		}

		if err := l.Handler.SetPassword(c.Context(), session.AccountID, input.NewPassword); err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(map[string]string{
			"message": "password set",
		})
	}
}

func (a *Adapter) changePassword(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c, "invalid request body")
		}

		session, ok := c.Locals("session").(*latch.Session)
		if !ok {
			return handleAuthError(c, latch.ErrSessionNotFound)
		}

		if err := l.Handler.ChangePassword(c.Context(), session.AccountID, input.CurrentPassword, input.NewPassword); err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(map[string]string{
			"message": "password changed",
		})
	}
}

func (a *Adapter) forgotPassword(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input struct {
			Email string `json:"email"`
		}
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c, "invalid request body")
		}

		if err := l.Handler.RequestPasswordReset(c.Context(), input.Email); err != nil {
			return handleAuthError(c, err)
		}

		// Same response whether or not the email exists.
		return c.Status(http.StatusOK).JSON(map[string]string{
			"message": "if the email is registered, a reset link has been sent",
		})
	}
}

func (a *Adapter) resetPassword(l *latch.Latch) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input struct {
			Token       string `json:"token"`
			NewPassword string `json:"newPassword"`
		}
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c, "invalid request body")
		}

		if err := l.Handler.ResetPassword(c.Context(), input.Token, input.NewPassword); err != nil {
			return handleAuthError(c, err)
		}

		return c.Status(http.StatusOK).JSON(map[string]string{
			"message": "password reset",
		})
	}
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(latch.ErrorResponse{
		Error: msg,
		Code:  "invalid_body",
	})
}

// handleAuthError maps core errors to HTTP responses with a stable
// machine-readable code alongside the message.
func handleAuthError(c fiber.Ctx, err error) error {
	status, code := mapError(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}

	return c.Status(status).JSON(latch.ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, latch.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, latch.ErrIdentityConflict):
		return http.StatusConflict, "identity_conflict"
	case errors.Is(err, latch.ErrPasswordAlreadySet):
		return http.StatusConflict, "password_already_set"

	case errors.Is(err, latch.ErrPasswordNotSet):
		return http.StatusBadRequest, "password_not_set"
	case errors.Is(err, latch.ErrInvalidResetToken):
		return http.StatusBadRequest, "invalid_reset_token"

	case errors.Is(err, latch.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, latch.ErrMissingAuthHeader),
		errors.Is(err, latch.ErrInvalidToken),
		errors.Is(err, latch.ErrSessionNotFound),
		errors.Is(err, latch.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, latch.ErrEmailRequired),
		errors.Is(err, latch.ErrPasswordRequired),
		errors.Is(err, latch.ErrPasswordTooShort),
		errors.Is(err, latch.ErrPasswordTooLong),
		errors.Is(err, latch.ErrInvalidEmail):
		return http.StatusBadRequest, "validation_failed"

	case errors.Is(err, latch.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
