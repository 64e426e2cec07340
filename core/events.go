package core

import (
	"sync"
	"time"
)

// Credential state transitions are published as explicit events so that
// collaborators (UI state, mailers, audit sinks) subscribe instead of
// polling ambient globals.

type EventType string

const (
	EventAccountCreated  EventType = "account.created"
	EventIdentityLinked  EventType = "account.identity_linked"
	EventPasswordSet     EventType = "account.password_set"
	EventPasswordChanged EventType = "account.password_changed"
	EventPasswordReset   EventType = "account.password_reset"
	EventResetRequested  EventType = "account.reset_requested"
)

// Event is a snapshot of an account transition. Account carries the
// projected view, never credential material.
type Event struct {
	Type    EventType   `json:"type"`
	Account AccountView `json:"account"`

	// ResetToken holds the raw single-use token, set only on
	// EventResetRequested. Subscribers deliver it to the account holder.
	ResetToken string `json:"-"`

	At time.Time `json:"at"`
}

// Bus fans events out to subscribers synchronously, in subscription
// order. Subscribers must not block.
type Bus struct {
	mu    sync.RWMutex
	subs  map[int]func(Event)
	order []int
	next  int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns an unsubscribe function.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, sub := range b.order {
			if sub == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	// Snapshot under the lock, invoke outside it, so subscribers may
	// themselves subscribe or unsubscribe.
	b.mu.RLock()
	snapshot := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range snapshot {
		fn(e)
	}
}
