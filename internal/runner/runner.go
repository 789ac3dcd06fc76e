// Package runner drives the settlement reconciler on a fixed interval,
// standing in for an external scheduler.
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
	"github.com/dentipal/DentiPalCDK-sub004/internal/runlock"
	"github.com/dentipal/DentiPalCDK-sub004/internal/settlement"
)

type Runner struct {
	reconciler *settlement.Reconciler
	lock       *runlock.Lock
	logger     *zap.Logger
	interval   time.Duration
}

func New(reconciler *settlement.Reconciler, lock *runlock.Lock, logger *zap.Logger, cfg *config.Config) *Runner {
	return &Runner{
		reconciler: reconciler,
		lock:       lock,
		logger:     logger,
		interval:   cfg.RunInterval,
	}
}

// Start runs one settlement pass immediately and then on every tick
// until the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	held, err := r.lock.TryAcquire(ctx)
	if err != nil {
		// The lock is advisory; a Redis outage must not stall settlement.
		r.logger.Warn("run lock unavailable, proceeding without it", zap.Error(err))
	} else if !held {
		r.logger.Info("another settlement run holds the lock, skipping this tick")
		return
	}
	defer func() {
		if held {
			if err := r.lock.Release(ctx); err != nil && !errors.Is(err, runlock.ErrNotHeld) {
				r.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}
	}()

	if err := r.reconciler.Run(ctx); err != nil {
		// Fatal for the run only; the next tick retries the whole pass,
		// which is safe because every write is idempotent.
		r.logger.Error("settlement run failed", zap.Error(err))
	}
}
