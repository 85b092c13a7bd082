package scheduler

import (
	"context"
	"time"

	"agenda_portal_backend/platform/logger"
)

const defaultLockSweepInterval = time.Hour

// LockSweeper periodically enqueues the expired-lock sweep task. The worker
// does the actual deleting, so several API replicas can run this loop
// without stepping on each other.
type LockSweeper struct {
	client   *Client
	log      *logger.Logger
	interval time.Duration
}

func NewLockSweeper(client *Client, log *logger.Logger, interval time.Duration) *LockSweeper {
	if interval <= 0 {
		interval = defaultLockSweepInterval
	}
	return &LockSweeper{
		client:   client,
		log:      log,
		interval: interval,
	}
}

func (s *LockSweeper) Run(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	s.enqueue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(ctx)
		}
	}
}

func (s *LockSweeper) enqueue(ctx context.Context) {
	if err := s.client.EnqueueLockSweep(ctx); err != nil {
		s.log.Warn("lock sweep enqueue failed", "error", err)
	}
}
