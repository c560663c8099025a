package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// IdleEvictor removes players inactive for longer than threshold as of now.
type IdleEvictor interface {
	ReapIdle(now time.Time, threshold time.Duration) int
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// IdleReaper periodically asks an IdleEvictor to drop stale players.
type IdleReaper struct {
	target    IdleEvictor
	interval  time.Duration
	threshold time.Duration
	clock     Clock
	logger    *zap.Logger
}

// NewIdleReaper returns a reaper that sweeps every interval.
//
// Precondition: interval and threshold must be > 0; target, clock, and logger must be non-nil.
func NewIdleReaper(target IdleEvictor, interval, threshold time.Duration, clock Clock, logger *zap.Logger) *IdleReaper {
	if interval <= 0 {
		panic("gameserver.NewIdleReaper: interval must be > 0")
	}
	if threshold <= 0 {
		panic("gameserver.NewIdleReaper: threshold must be > 0")
	}
	return &IdleReaper{
		target:    target,
		interval:  interval,
		threshold: threshold,
		clock:     clock,
		logger:    logger,
	}
}

// Run sweeps once per interval until ctx is cancelled.
//
// Postcondition: Returns nil once ctx is done.
func (r *IdleReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("idle reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("threshold", r.threshold),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep runs one eviction pass and returns the number of players removed.
func (r *IdleReaper) Sweep() int {
	start := time.Now()
	n := r.target.ReapIdle(r.clock.Now(), r.threshold)
	if n > 0 {
		r.logger.Info("evicted idle players",
			zap.Int("count", n),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return n
}
