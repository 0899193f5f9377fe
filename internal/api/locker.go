package api

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/doorman/internal/access"
)

// LockStatus is the state reported by GET /lock.
type LockStatus struct {
	Waiting  bool      `json:"waiting"`
	LockedAt time.Time `json:"locked_at,omitzero"`
}

// Locker is a Locker driven by POST /lock.
type Locker struct {
	mu       sync.Mutex
	signal   chan struct{}
	lockedAt time.Time
}

var _ access.Locker = (*Locker)(nil)

// NewLocker creates an HTTP locker.
func NewLocker() *Locker {
	return &Locker{}
}

// WaitForLock blocks until Lock is called or ctx ends.
func (l *Locker) WaitForLock(ctx context.Context) error {
	ch := make(chan struct{})
	l.mu.Lock()
	l.signal = ch
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.signal == ch {
			l.signal = nil
		}
		l.mu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConfirmLock records when the door was locked.
func (l *Locker) ConfirmLock(context.Context) error {
	l.mu.Lock()
	l.lockedAt = time.Now().UTC()
	l.mu.Unlock()
	return nil
}

// Lock releases a pending WaitForLock.
func (l *Locker) Lock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.signal == nil {
		return ErrNotWaiting
	}
	close(l.signal)
	l.signal = nil
	return nil
}

// Status reports whether the door is waiting and when it last locked.
func (l *Locker) Status() LockStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LockStatus{Waiting: l.signal != nil, LockedAt: l.lockedAt}
}
