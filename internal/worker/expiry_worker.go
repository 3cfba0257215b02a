package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer closes idle listing dialogues and chats.
type Expirer interface {
	ExpireStale(ctx context.Context) (conversations, chats int)
}

// Pruner forgets stale de-duplication entries.
type Pruner interface {
	Prune(now time.Time) int
}

// StartExpiryWorker sweeps idle sessions every interval until ctx is done.
// The returned channel is closed when the loop exits. A non-positive
// interval disables the sweep.
func StartExpiryWorker(ctx context.Context, interval time.Duration, expirer Expirer, pruner Pruner, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 || expirer == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				Sweep(ctx, now, expirer, pruner, logger)
			}
		}
	}()
	return done
}

// Sweep runs one expiry pass.
func Sweep(ctx context.Context, now time.Time, expirer Expirer, pruner Pruner, logger *zap.Logger) {
	conversations, chats := expirer.ExpireStale(ctx)
	pruned := 0
	if pruner != nil {
		pruned = pruner.Prune(now)
	}
	if pruned > 0 {
		logger.Debug("pruned update ids", zap.Int("count", pruned))
	}
	if conversations+chats > 0 {
		logger.Debug("sweep finished", zap.Int("conversations", conversations), zap.Int("chats", chats))
	}
}
