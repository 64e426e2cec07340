package services

import (
	"context"
	"sync"
	"time"

	"github.com/ljmarquez/latch/core"
)

// FakeAuthStorage is a test-only fake implementing core.AuthStorage.
// It keeps records in maps and mirrors the adapters' semantics: unique
// emails, versioned account updates, atomic single-use token
// consumption. Error fields allow behavior injection.
type FakeAuthStorage struct {
	mu          sync.Mutex
	accounts    map[string]*core.Account    // key: account ID
	resetTokens map[string]*core.ResetToken // key: token hash
	sessions    map[string]*core.Session    // key: token hash

	createAccountErr error
	getAccountErr    error
	updateAccountErr error
	createTokenErr   error
	sessionErr       error
}

func NewFakeAuthStorage() *FakeAuthStorage {
	return &FakeAuthStorage{
		accounts:    make(map[string]*core.Account),
		resetTokens: make(map[string]*core.ResetToken),
		sessions:    make(map[string]*core.Session),
	}
}

func cloneAccount(a *core.Account) *core.Account {
	c := *a
	if a.ExternalID != nil {
		ext := *a.ExternalID
		c.ExternalID = &ext
	}
	return &c
}

// AccountStorage methods

func (f *FakeAuthStorage) CreateAccount(ctx context.Context, a *core.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createAccountErr != nil {
		return f.createAccountErr
	}

	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return core.ErrEmailTaken
		}
	}

	now := time.Now()
	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now
	f.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (f *FakeAuthStorage) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}

	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (f *FakeAuthStorage) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}

	for _, a := range f.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeAuthStorage) UpdateAccount(ctx context.Context, a *core.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateAccountErr != nil {
		return f.updateAccountErr
	}

	stored, ok := f.accounts[a.ID]
	if !ok {
		return core.ErrAccountNotFound
	}
	if stored.Version != a.Version {
		return core.ErrVersionConflict
	}

	a.Version++
	a.UpdatedAt = time.Now()
	f.accounts[a.ID] = cloneAccount(a)
	return nil
}

// ResetTokenStorage methods

func (f *FakeAuthStorage) CreateResetToken(ctx context.Context, t *core.ResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createTokenErr != nil {
		return f.createTokenErr
	}

	copied := *t
	f.resetTokens[t.TokenHash] = &copied
	return nil
}

func (f *FakeAuthStorage) ConsumeResetToken(ctx context.Context, tokenHash string) (*core.ResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.resetTokens[tokenHash]
	if !ok || time.Now().After(t.ExpiresAt) {
		return nil, core.ErrInvalidResetToken
	}
	delete(f.resetTokens, tokenHash)

	copied := *t
	return &copied, nil
}

func (f *FakeAuthStorage) DeleteAccountResetTokens(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for hash, t := range f.resetTokens {
		if t.AccountID == accountID {
			delete(f.resetTokens, hash)
		}
	}
	return nil
}

// SessionStorage methods

func (f *FakeAuthStorage) CreateSession(ctx context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sessionErr != nil {
		return f.sessionErr
	}

	copied := *s
	f.sessions[s.TokenHash] = &copied
	return nil
}

func (f *FakeAuthStorage) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sessionErr != nil {
		return nil, f.sessionErr
	}

	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *FakeAuthStorage) GetSessionByID(ctx context.Context, id string) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.sessions {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, core.ErrSessionNotFound
}

func (f *FakeAuthStorage) GetAccountSessions(ctx context.Context, accountID string) ([]*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*core.Session
	for _, s := range f.sessions {
		if s.AccountID == accountID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *FakeAuthStorage) DeleteSessionByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for hash, s := range f.sessions {
		if s.ID == id {
			delete(f.sessions, hash)
			return nil
		}
	}
	return core.ErrSessionNotFound
}

func (f *FakeAuthStorage) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.sessions[tokenHash]; !ok {
		return core.ErrSessionNotFound
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeAuthStorage) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for hash, s := range f.sessions {
		if s.AccountID == accountID {
			delete(f.sessions, hash)
			count++
		}
	}
	return count, nil
}

func (f *FakeAuthStorage) DeleteExpiredSessions(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	now := time.Now()
	for hash, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, hash)
			count++
		}
	}
	return count, nil
}

var _ core.AuthStorage = (*FakeAuthStorage)(nil)
