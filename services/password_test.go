package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ljmarquez/latch/core"
	"github.com/ljmarquez/latch/pkg/crypto"
)

// oauthAccount creates an OAuth-origin account and returns it.
func oauthAccount(t *testing.T, env *testEnv, email, externalID string) *core.Account {
	t.Helper()
	account, _, err := env.reconciler.OAuthAssertion(context.Background(), core.ExternalIdentity{
		ExternalID: externalID,
		Email:      email,
	})
	if err != nil {
		t.Fatalf("OAuthAssertion() error = %v", err)
	}
	return account
}

// passwordAccount creates a password-signup account and returns it.
func passwordAccount(t *testing.T, env *testEnv, email, password string) *core.Account {
	t.Helper()
	account, err := env.reconciler.PasswordSignup(context.Background(), email, password)
	if err != nil {
		t.Fatalf("PasswordSignup() error = %v", err)
	}
	return account
}

// Requirement: SetPassword is one-shot. It succeeds exactly once for an
// OAuth-origin account and fails with ErrPasswordAlreadySet afterwards.
func TestPasswordService_SetPassword(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	account := oauthAccount(t, env, "frank@example.com", "ext-frank")

	// Act: first set
	if err := env.lifecycle.SetPassword(ctx, account.ID, "ChosenPass123!"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}

	// Assert: flag flipped, credential usable
	updated, err := env.storage.GetAccountByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccountByID() error = %v", err)
	}
	if !updated.HasSetPassword {
		t.Error("SetPassword() should mark the credential as operator-chosen")
	}
	if updated.ID != account.ID {
		t.Error("SetPassword() must not change the account ID")
	}
	if core.Project(updated).IsOAuthUser {
		t.Error("projection should report IsOAuthUser=false after SetPassword")
	}
	if _, err := env.auth.SignIn(ctx, core.SignInInput{
		Email: "frank@example.com", Password: "ChosenPass123!",
	}, "127.0.0.1", "test-agent"); err != nil {
		t.Errorf("SignIn() with chosen password error = %v", err)
	}

	// Act: second set
	err = env.lifecycle.SetPassword(ctx, account.ID, "AnotherPass456!")

	// Assert
	if !errors.Is(err, core.ErrPasswordAlreadySet) {
		t.Fatalf("second SetPassword() error = %v, want ErrPasswordAlreadySet", err)
	}
}

// Requirement: SetPassword rejects password-signup accounts outright.
func TestPasswordService_SetPassword_PasswordOrigin(t *testing.T) {
	env := newTestEnv()
	account := passwordAccount(t, env, "grace@example.com", "SecurePass123!")

	err := env.lifecycle.SetPassword(context.Background(), account.ID, "NewPass456!")

	if !errors.Is(err, core.ErrPasswordAlreadySet) {
		t.Fatalf("SetPassword() error = %v, want ErrPasswordAlreadySet", err)
	}
}

// Requirement: ChangePassword requires an operator-chosen credential and
// a correct current password; eligibility is checked before the
// credential, whatever values are supplied.
func TestPasswordService_ChangePassword(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		new      string
		oauth    bool // account created via OAuth, no password set
		wantErr  error
	}{
		{
			name:    "changes password with valid current",
			current: "SecurePass123!",
			new:     "NewSecure456!",
		},
		{
			name:    "rejects wrong current password",
			current: "WrongPass123!",
			new:     "NewSecure456!",
			wantErr: core.ErrInvalidCredentials,
		},
		{
			name:    "rejects oauth-origin account regardless of values",
			current: "anything-at-all",
			new:     "NewSecure456!",
			oauth:   true,
			wantErr: core.ErrPasswordNotSet,
		},
		{
			name:    "rejects oauth-origin account with empty current",
			current: "",
			new:     "NewSecure456!",
			oauth:   true,
			wantErr: core.ErrPasswordNotSet,
		},
		{
			name:    "rejects short new password",
			current: "SecurePass123!",
			new:     "short",
			wantErr: core.ErrPasswordTooShort,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()
			ctx := context.Background()

			var account *core.Account
			if test.oauth {
				account = oauthAccount(t, env, "heidi@example.com", "ext-heidi")
			} else {
				account = passwordAccount(t, env, "heidi@example.com", "SecurePass123!")
			}

			// Act
			err := env.lifecycle.ChangePassword(ctx, account.ID, test.current, test.new)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("ChangePassword() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ChangePassword() error = %v", err)
			}

			updated, err := env.storage.GetAccountByID(ctx, account.ID)
			if err != nil {
				t.Fatalf("GetAccountByID() error = %v", err)
			}
			if !updated.HasSetPassword {
				t.Error("ChangePassword() must keep the operator-chosen flag")
			}
			if updated.ID != account.ID {
				t.Error("ChangePassword() must not change the account ID")
			}
			if _, err := env.auth.SignIn(ctx, core.SignInInput{
				Email: "heidi@example.com", Password: test.new,
			}, "127.0.0.1", "test-agent"); err != nil {
				t.Errorf("SignIn() with new password error = %v", err)
			}
		})
	}
}

// Requirement: RequestReset is uniform toward the caller. Unknown emails
// succeed silently; known emails produce a reset token delivered via the
// event bus, never in the response.
func TestPasswordService_RequestReset(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	passwordAccount(t, env, "ivan@example.com", "SecurePass123!")
	events := collectEvents(env.bus)

	// Act: unknown email
	if err := env.lifecycle.RequestReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("RequestReset() unknown email error = %v", err)
	}
	if len(*events) != 0 {
		t.Fatalf("unknown email published %d events, want 0", len(*events))
	}

	// Act: known email
	if err := env.lifecycle.RequestReset(ctx, "ivan@example.com"); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}

	// Assert
	if len(*events) != 1 {
		t.Fatalf("published %d events, want 1", len(*events))
	}
	event := (*events)[0]
	if event.Type != core.EventResetRequested {
		t.Errorf("event type = %s, want %s", event.Type, core.EventResetRequested)
	}
	if event.ResetToken == "" {
		t.Error("reset event should carry the raw token")
	}
}

// Requirement: ResetPassword always results in an operator-chosen
// credential, from either prior state, and the account ID is stable.
func TestPasswordService_ResetPassword(t *testing.T) {
	tests := []struct {
		name  string
		oauth bool
	}{
		{name: "grants flag on oauth-origin account", oauth: true},
		{name: "keeps flag on password-origin account", oauth: false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv()
			ctx := context.Background()

			var account *core.Account
			if test.oauth {
				account = oauthAccount(t, env, "judy@example.com", "ext-judy")
			} else {
				account = passwordAccount(t, env, "judy@example.com", "SecurePass123!")
			}

			events := collectEvents(env.bus)
			if err := env.lifecycle.RequestReset(ctx, "judy@example.com"); err != nil {
				t.Fatalf("RequestReset() error = %v", err)
			}
			token := (*events)[0].ResetToken

			// Act
			if err := env.lifecycle.ResetPassword(ctx, token, "AfterReset789!"); err != nil {
				t.Fatalf("ResetPassword() error = %v", err)
			}

			// Assert
			updated, err := env.storage.GetAccountByID(ctx, account.ID)
			if err != nil {
				t.Fatalf("GetAccountByID() error = %v", err)
			}
			if !updated.HasSetPassword {
				t.Error("ResetPassword() must leave HasSetPassword=true")
			}
			if updated.ID != account.ID {
				t.Error("ResetPassword() must not change the account ID")
			}
			if _, err := env.auth.SignIn(ctx, core.SignInInput{
				Email: "judy@example.com", Password: "AfterReset789!",
			}, "127.0.0.1", "test-agent"); err != nil {
				t.Errorf("SignIn() with reset password error = %v", err)
			}
		})
	}
}

// Requirement: unknown, expired and consumed tokens all fail with
// ErrInvalidResetToken.
func TestPasswordService_ResetPassword_InvalidTokens(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	account := passwordAccount(t, env, "kim@example.com", "SecurePass123!")

	// Act + Assert: unknown token
	err := env.lifecycle.ResetPassword(ctx, "bogus-token", "AfterReset789!")
	if !errors.Is(err, core.ErrInvalidResetToken) {
		t.Fatalf("unknown token error = %v, want ErrInvalidResetToken", err)
	}

	// Act + Assert: expired token
	pair, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
	if err != nil {
		t.Fatalf("GenerateHashedToken() error = %v", err)
	}
	expired := &core.ResetToken{
		ID:        "expired-token",
		AccountID: account.ID,
		TokenHash: pair.Hash,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := env.storage.CreateResetToken(ctx, expired); err != nil {
		t.Fatalf("CreateResetToken() error = %v", err)
	}
	err = env.lifecycle.ResetPassword(ctx, pair.Token, "AfterReset789!")
	if !errors.Is(err, core.ErrInvalidResetToken) {
		t.Fatalf("expired token error = %v, want ErrInvalidResetToken", err)
	}

	// Act + Assert: consumed token
	events := collectEvents(env.bus)
	if err := env.lifecycle.RequestReset(ctx, "kim@example.com"); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	token := (*events)[0].ResetToken
	if err := env.lifecycle.ResetPassword(ctx, token, "AfterReset789!"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	err = env.lifecycle.ResetPassword(ctx, token, "AgainReset000!")
	if !errors.Is(err, core.ErrInvalidResetToken) {
		t.Fatalf("consumed token error = %v, want ErrInvalidResetToken", err)
	}
}

// Requirement: token consumption is exactly-once under concurrency. Of N
// racing resets with the same token, one succeeds and the rest fail with
// ErrInvalidResetToken.
func TestPasswordService_ResetPassword_ConcurrentSingleUse(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	passwordAccount(t, env, "leo@example.com", "SecurePass123!")

	events := collectEvents(env.bus)
	if err := env.lifecycle.RequestReset(ctx, "leo@example.com"); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	token := (*events)[0].ResetToken

	// Act
	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.lifecycle.ResetPassword(ctx, token, "AfterReset789!")
		}(i)
	}
	wg.Wait()

	// Assert
	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, core.ErrInvalidResetToken):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

// Requirement: a successful reset revokes every session of the account.
func TestPasswordService_ResetPassword_RevokesSessions(t *testing.T) {
	// Arrange
	env := newTestEnv()
	ctx := context.Background()
	account := passwordAccount(t, env, "mallory@example.com", "SecurePass123!")

	first, err := env.sessions.Create(ctx, account.ID, "127.0.0.1", "agent-a")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.sessions.Create(ctx, account.ID, "127.0.0.2", "agent-b"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	events := collectEvents(env.bus)
	if err := env.lifecycle.RequestReset(ctx, "mallory@example.com"); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	token := (*events)[0].ResetToken

	// Act
	if err := env.lifecycle.ResetPassword(ctx, token, "AfterReset789!"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Assert
	if _, err := env.sessions.Verify(ctx, first.Token); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("Verify() after reset error = %v, want ErrSessionNotFound", err)
	}
	remaining, err := env.storage.GetAccountSessions(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccountSessions() error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining sessions = %d, want 0", len(remaining))
	}
}
