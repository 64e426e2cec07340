package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ljmarquez/latch"
)

type Adapter struct {
	app *fiber.App
}

var _ latch.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

// RegisterRoutes walks the endpoint table and binds each operation to
// its Fiber handler. Endpoints with an operation this adapter does not
// know (plugins bring their own routes) are skipped.
func (a *Adapter) RegisterRoutes(l *latch.Latch) error {
	api := a.app.Group(l.BasePath)

	handlers := map[string]fiber.Handler{
		"signUpWithEmailAndPassword": a.signUp(l),
		"signInWithEmailAndPassword": a.signIn(l),
		"signInWithProvider":         a.signInWithProvider(l),
		"signOut":                    a.signOut(l),
		"signOutAll":                 a.signOutAll(l),
		"getSession":                 a.getSession(l),
		"setPassword":                a.setPassword(l),
		"changePassword":             a.changePassword(l),
		"forgotPassword":             a.forgotPassword(l),
		"resetPassword":              a.resetPassword(l),
	}

	for _, ep := range l.Endpoints {
		handler, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			continue
		}

		// The oauth route only exists when a verifier is configured.
		if ep.Metadata.OperationID == "signInWithProvider" && l.Verifier == nil {
			continue
		}

		// Handlers run in registration order, so the auth middleware must
		// precede the business handler.
		if ep.Auth {
			api.Add([]string{ep.Method}, ep.Path, a.requireAuth(l), handler)
		} else {
			api.Add([]string{ep.Method}, ep.Path, handler)
		}
	}

	return nil
}
