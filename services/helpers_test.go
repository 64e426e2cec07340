package services

import (
	"time"

	"github.com/ljmarquez/latch/core"
	"github.com/ljmarquez/latch/pkg/crypto"
)

// testArgon2 returns an Argon2 instance with reduced cost so the suite
// stays fast. The code path is identical to production parameters.
func testArgon2() *crypto.Argon2 {
	return &crypto.Argon2{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

type testEnv struct {
	storage    *FakeAuthStorage
	bus        *core.Bus
	passwords  *crypto.Argon2
	sessions   *core.SessionManager
	reconciler *ReconcilerService
	lifecycle  *PasswordService
	auth       *AuthService
}

func newTestEnv() *testEnv {
	storage := NewFakeAuthStorage()
	bus := core.NewBus()
	passwords := testArgon2()
	sessions := core.NewSessionManager(core.SessionConfig{MaxAge: 24 * time.Hour}, storage, nil)
	reconciler := NewReconcilerService(storage, passwords, bus, nil)
	lifecycle := NewPasswordService(storage, passwords, sessions, bus, nil, time.Hour)
	auth := NewAuthService(storage, reconciler, lifecycle, passwords, sessions, nil)

	return &testEnv{
		storage:    storage,
		bus:        bus,
		passwords:  passwords,
		sessions:   sessions,
		reconciler: reconciler,
		lifecycle:  lifecycle,
		auth:       auth,
	}
}

// collectEvents subscribes to the bus and appends every published event
// to the returned slice.
func collectEvents(bus *core.Bus) *[]core.Event {
	events := &[]core.Event{}
	bus.Subscribe(func(e core.Event) {
		*events = append(*events, e)
	})
	return events
}
