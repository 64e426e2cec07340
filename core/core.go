package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/ljmarquez/latch/pkg/crypto"
)

type Config struct {
	Storage AuthStorage

	HTTP HTTPAdapter

	// Optional config
	IdentityVerifier IdentityVerifier // enables the oauth route when set
	CacheAdapter     Cache
	DisableCache     bool
	SessionConfig    *SessionConfig
	PasswordHasher   crypto.PasswordHandler
	ResetTokenTTL    time.Duration
	BasePath         string
	Logger           *zap.Logger
}

// Latch is the assembled auth core handed to HTTP adapters.
type Latch struct {
	Handler        AuthHandler
	SessionManager *SessionManager
	Bus            *Bus
	Verifier       IdentityVerifier
	Endpoints      []Endpoint
	BasePath       string
}
