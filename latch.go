package latch

import (
	"time"

	"go.uber.org/zap"

	"github.com/ljmarquez/latch/core"
	"github.com/ljmarquez/latch/pkg/crypto"
	"github.com/ljmarquez/latch/services"
)

// interfaces
type (
	AuthStorage       = core.AuthStorage
	AccountStorage    = core.AccountStorage
	ResetTokenStorage = core.ResetTokenStorage
	SessionStorage    = core.SessionStorage
	Cache             = core.Cache

	HTTPAdapter      = core.HTTPAdapter
	AuthHandler      = core.AuthHandler
	IdentityVerifier = core.IdentityVerifier

	SessionManager = core.SessionManager

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	Latch         = core.Latch
	Config        = core.Config
	SessionConfig = core.SessionConfig
	CacheConfig   = core.CacheConfig
)

type (
	Account          = core.Account
	AccountView      = core.AccountView
	ResetToken       = core.ResetToken
	Session          = core.Session
	SessionData      = core.SessionData
	ExternalIdentity = core.ExternalIdentity
	CacheStats       = core.CacheStats

	SignUpInput = core.SignUpInput
	SignInInput = core.SignInInput
	AuthResult  = core.AuthResult
	OAuthResult = core.OAuthResult

	Event     = core.Event
	EventType = core.EventType
	Bus       = core.Bus

	Endpoint         = core.Endpoint
	EndpointMetadata = core.EndpointMetadata
	ErrorResponse    = core.ErrorResponse
)

const (
	defaultBasePath = "/api/auth"
)

const (
	EventAccountCreated  = core.EventAccountCreated
	EventIdentityLinked  = core.EventIdentityLinked
	EventPasswordSet     = core.EventPasswordSet
	EventPasswordChanged = core.EventPasswordChanged
	EventPasswordReset   = core.EventPasswordReset
	EventResetRequested  = core.EventResetRequested
)

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache     = core.NewInMemoryCache
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = core.DefaultSessionConfig
	Project              = core.Project
	BaseEndpoints        = services.BaseEndpoints
	NewEndpointRegistry  = services.NewEndpointRegistry
)

var (
	ErrEmailTaken       = core.ErrEmailTaken
	ErrIdentityConflict = core.ErrIdentityConflict
	ErrAccountNotFound  = core.ErrAccountNotFound
)

var (
	ErrPasswordAlreadySet = core.ErrPasswordAlreadySet
	ErrPasswordNotSet     = core.ErrPasswordNotSet
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrInvalidResetToken  = core.ErrInvalidResetToken
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidToken      = core.ErrInvalidToken
	ErrSessionNotFound   = core.ErrSessionNotFound
	ErrSessionExpired    = core.ErrSessionExpired
	ErrCacheNotFound     = core.ErrCacheNotFound
)

var (
	ErrEmailRequired    = core.ErrEmailRequired
	ErrPasswordRequired = core.ErrPasswordRequired
	ErrPasswordTooShort = core.ErrPasswordTooShort
	ErrPasswordTooLong  = core.ErrPasswordTooLong
	ErrInvalidEmail     = core.ErrInvalidEmail
)

var (
	ErrVersionConflict     = core.ErrVersionConflict
	ErrStorageRequired     = core.ErrStorageRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
)

func New(config Config) (*Latch, error) {
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	cacheAdapter := config.CacheAdapter
	if cacheAdapter == nil && !config.DisableCache {
		cacheAdapter = NewInMemoryCache(CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 500,
		})
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		sessionConfig = &SessionConfig{
			MaxAge: 24 * time.Hour,
		}
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bus := core.NewBus()

	sessionManager := core.NewSessionManager(
		*sessionConfig,
		config.Storage,
		cacheAdapter,
	)

	reconciler := services.NewReconcilerService(config.Storage, passwordHasher, bus, logger)
	lifecycle := services.NewPasswordService(config.Storage, passwordHasher, sessionManager, bus, logger, config.ResetTokenTTL)
	handler := services.NewAuthService(config.Storage, reconciler, lifecycle, passwordHasher, sessionManager, logger)

	latch := &Latch{
		Handler:        handler,
		SessionManager: sessionManager,
		Bus:            bus,
		Verifier:       config.IdentityVerifier,
		Endpoints:      services.NewEndpointRegistry().Endpoints(),
		BasePath:       basePath,
	}

	if err := config.HTTP.RegisterRoutes(latch); err != nil {
		return nil, err
	}

	return latch, nil
}
