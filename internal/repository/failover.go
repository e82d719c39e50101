package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
)

// recoveryCheckInterval is how often a downed primary is probed again.
const recoveryCheckInterval = time.Minute

// FailoverLocker serves locks from a primary (redis) locker and falls back
// to the local one when the primary is unreachable, probing the primary
// again periodically. Contention on the primary is not a failure and never
// triggers failover.
type FailoverLocker struct {
	primary  Locker
	fallback Locker
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

// NewFailoverLocker wires the primary and fallback lockers.
func NewFailoverLocker(primary, fallback Locker, logger zerolog.Logger) *FailoverLocker {
	return &FailoverLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "locker").Logger(),
	}
}

// Acquire tries the primary locker unless it is known to be down, in which
// case the local fallback serializes writers within this process.
func (l *FailoverLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l.usePrimary() {
		release, err := l.primary.Acquire(ctx, key)
		if err == nil {
			l.markUp()
			return release, nil
		}
		if errors.Is(err, booking.ErrConcurrency) {
			return nil, err
		}
		l.markDown(err)
	}
	return l.fallback.Acquire(ctx, key)
}

func (l *FailoverLocker) usePrimary() bool {
	if !l.isDown.Load() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCheck) >= recoveryCheckInterval {
		l.lastCheck = time.Now()
		return true
	}
	return false
}

func (l *FailoverLocker) markUp() {
	if l.isDown.CompareAndSwap(true, false) {
		l.logger.Info().Msg("primary locker recovered")
	}
}

func (l *FailoverLocker) markDown(err error) {
	if l.isDown.CompareAndSwap(false, true) {
		l.mu.Lock()
		l.lastCheck = time.Now()
		l.mu.Unlock()
		l.logger.Warn().Err(err).Msg("primary locker unavailable, using local fallback")
	}
}
