// Package repository provides the mutual-exclusion locks that serialize
// validate-then-write sequences per (space, date) slot. Without them two
// concurrent requests could both observe a free slot and both commit.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
)

// Locker acquires exclusive access to a slot key. The returned function
// releases the lock. Acquisition is bounded by ctx: when the lock cannot be
// obtained in time, Acquire fails with booking.ErrConcurrency rather than
// blocking indefinitely.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SlotKey builds the lock key for one space on one date.
func SlotKey(spaceID int64, date string) string {
	return fmt.Sprintf("slot:%d:%s", spaceID, date)
}

type slotLock struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process Locker backed by per-key semaphores. It is
// the fallback when redis is not configured and is sufficient for a single
// server instance.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

// NewLocalLocker creates an empty local locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slotLock)}
}

// Acquire blocks until the slot is free or ctx expires.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slotLock{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			l.unref(key)
		}, nil
	case <-ctx.Done():
		l.unref(key)
		return nil, fmt.Errorf("acquire %s: %w", key, booking.ErrConcurrency)
	}
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		s.refs--
		if s.refs == 0 {
			delete(l.slots, key)
		}
	}
}
