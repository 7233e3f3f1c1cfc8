// Package cleanup expires inscriptions whose enrollment was started but never
// came back through the finish callback.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPendingTTL = 24 * time.Hour
	defaultInterval   = time.Hour
)

type pendingExpirer interface {
	FailPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Job struct {
	store      pendingExpirer
	pendingTTL time.Duration
	interval   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewPendingExpiryJob(store pendingExpirer, pendingTTL, interval time.Duration, logger *zap.Logger) *Job {
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		store:      store,
		pendingTTL: pendingTTL,
		interval:   interval,
		now:        time.Now,
		logger:     logger,
	}
}

// Run performs a single sweep.
func (j *Job) Run(ctx context.Context) (int64, error) {
	if j.store == nil {
		return 0, nil
	}

	cutoff := j.now().Add(-j.pendingTTL)
	failed, err := j.store.FailPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending inscriptions: %w", err)
	}
	if failed > 0 {
		j.logger.Info("expired stale pending inscriptions",
			zap.Int64("failed", failed),
			zap.Time("cutoff", cutoff),
		)
	}
	return failed, nil
}

// Loop sweeps once immediately and then every interval until ctx is done.
func (j *Job) Loop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if _, err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("pending inscription sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
