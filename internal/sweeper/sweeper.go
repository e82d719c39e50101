// Package sweeper closes out confirmed reservations whose time has passed.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Completer marks elapsed confirmed reservations as completed.
type Completer interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

// Sweeper periodically drives the confirmed → completed transition. Without
// it, fulfilled bookings would stay confirmed forever; the overlap check is
// scoped by date so they block nothing either way, the sweep just gives them
// explicit closure.
type Sweeper struct {
	svc      Completer
	interval time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// New creates a sweeper running every interval.
func New(svc Completer, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled. One sweep runs
// immediately so a restart catches up right away.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.sweep(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the sweep loop has stopped.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.svc.CompleteElapsed(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("completion sweep failed")
		return
	}
	if n > 0 {
		s.logger.Debug().Int("completed", n).Msg("completion sweep done")
	}
}
