package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ljmarquez/latch/core"
	"github.com/ljmarquez/latch/pkg/crypto"
)

// maxUpdateRetries bounds the re-read loop around versioned updates.
// A conflict means a concurrent operation on the same account won the
// race; re-reading lets the guard conditions re-evaluate against the
// fresh state instead of silently losing the write.
const maxUpdateRetries = 3

// placeholderSecretLength is the byte length of the random credential
// generated for OAuth-origin accounts.
const placeholderSecretLength = 32

// ReconcilerService decides what account state results from an incoming
// authentication event. Password sign-up and OAuth assertions may
// independently create or attach to the same logical account, keyed by
// email; the reconciler keeps the two flows consistent.
type ReconcilerService struct {
	db        core.AccountStorage
	passwords crypto.PasswordHandler
	bus       *core.Bus
	logger    *zap.Logger
}

func NewReconcilerService(db core.AccountStorage, passwords crypto.PasswordHandler, bus *core.Bus, logger *zap.Logger) *ReconcilerService {
	if bus == nil {
		bus = core.NewBus()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcilerService{
		db:        db,
		passwords: passwords,
		bus:       bus,
		logger:    logger,
	}
}

// PasswordSignup creates a new account with an operator-chosen
// credential. Fails with ErrEmailTaken if the email is already
// registered, via either flow.
func (s *ReconcilerService) PasswordSignup(ctx context.Context, email, password string) (*core.Account, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.db.GetAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, core.ErrEmailTaken
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &core.Account{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   hashed,
		HasSetPassword: true,
	}

	if err := s.db.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.Bool("oauth_origin", false),
	)
	s.publish(core.EventAccountCreated, account)

	return account, nil
}

// OAuthAssertion reconciles a verified external identity against the
// account store. Returns the resulting account and whether it was newly
// created.
//
// The four outcomes, keyed by email lookup:
//   - unseen email: create an account with a hashed random placeholder
//     credential and the identity linked
//   - existing account, no linked identity: link it; the password hash
//     and HasSetPassword stay exactly as they were
//   - existing account, same identity: no-op
//   - existing account, different identity: ErrIdentityConflict
func (s *ReconcilerService) OAuthAssertion(ctx context.Context, identity core.ExternalIdentity) (*core.Account, bool, error) {
	if identity.ExternalID == "" {
		return nil, false, core.ErrInvalidToken
	}
	identity.Email = normalizeEmail(identity.Email)
	if err := validateEmail(identity.Email); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.db.GetAccountByEmail(ctx, identity.Email)
		if errors.Is(err, core.ErrAccountNotFound) {
			account, err = s.createFromIdentity(ctx, identity)
			if errors.Is(err, core.ErrEmailTaken) {
				// Lost a create race with the other flow; re-read and link.
				continue
			}
			if err != nil {
				return nil, false, err
			}
			return account, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up account: %w", err)
		}

		switch {
		case account.ExternalID == nil:
			account.ExternalID = &identity.ExternalID
			if err := s.db.UpdateAccount(ctx, account); err != nil {
				if errors.Is(err, core.ErrVersionConflict) {
					continue
				}
				return nil, false, fmt.Errorf("failed to link identity: %w", err)
			}
			s.logger.Info("external identity linked",
				zap.String("account_id", account.ID),
				zap.Bool("has_set_password", account.HasSetPassword),
			)
			s.publish(core.EventIdentityLinked, account)
			return account, false, nil

		case *account.ExternalID == identity.ExternalID:
			// Repeated assertion for the same identity is idempotent.
			return account, false, nil

		default:
			return nil, false, core.ErrIdentityConflict
		}
	}

	return nil, false, core.ErrVersionConflict
}

func (s *ReconcilerService) createFromIdentity(ctx context.Context, identity core.ExternalIdentity) (*core.Account, error) {
	// The holder never learns this value; they use OAuth, or set a real
	// password later via set-password.
	secret, err := crypto.RandomSecret(placeholderSecretLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate placeholder secret: %w", err)
	}
	hashed, err := s.passwords.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder secret: %w", err)
	}

	externalID := identity.ExternalID
	account := &core.Account{
		ID:             uuid.NewString(),
		Email:          identity.Email,
		PasswordHash:   hashed,
		ExternalID:     &externalID,
		HasSetPassword: false,
	}

	if err := s.db.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return nil, core.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.Bool("oauth_origin", true),
	)
	s.publish(core.EventAccountCreated, account)

	return account, nil
}

func (s *ReconcilerService) publish(t core.EventType, account *core.Account) {
	s.bus.Publish(core.Event{
		Type:    t,
		Account: *core.Project(account),
	})
}
