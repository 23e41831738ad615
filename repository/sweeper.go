package repository

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
)

// Expirer removes records past their TTL
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper calls DeleteExpired on an interval
type Sweeper struct {
	store    Expirer
	interval time.Duration
	logger   accounts.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a stopped Sweeper
func NewSweeper(store Expirer, interval time.Duration, logger accounts.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start runs a sweep right away and then on every tick until Stop or ctx ends
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs a single pass
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("refresh token sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.logger.Info("expired refresh tokens removed", "count", n)
	}
	return n
}

// Stop ends the loop and waits for it to exit
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
