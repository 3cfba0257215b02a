package persistence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupeKeyPrefix = "marketbot:update:"

// Deduplicator remembers webhook update ids so redelivered updates are
// processed once.
type Deduplicator struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[int64]time.Time
}

// NewDeduplicator uses Redis when r is connected and an in-process set
// otherwise or whenever Redis errors.
func NewDeduplicator(r *Redis, ttl time.Duration, logger *zap.Logger) *Deduplicator {
	d := &Deduplicator{ttl: ttl, logger: logger, local: make(map[int64]time.Time)}
	if r != nil {
		d.client = r.Client
	}
	return d
}

// FirstSeen records updateID and reports whether it was new.
func (d *Deduplicator) FirstSeen(ctx context.Context, updateID int64) bool {
	if d.client != nil {
		ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+strconv.FormatInt(updateID, 10), 1, d.ttl).Result()
		if err == nil {
			return ok
		}
		d.logger.Debug("redis dedupe unavailable", zap.Error(err))
	}
	return d.firstSeenLocal(updateID, time.Now())
}

func (d *Deduplicator) firstSeenLocal(updateID int64, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seenAt, ok := d.local[updateID]; ok && (d.ttl <= 0 || now.Sub(seenAt) < d.ttl) {
		return false
	}
	d.local[updateID] = now
	return true
}

// Prune forgets local entries older than the TTL.
func (d *Deduplicator) Prune(now time.Time) int {
	if d.ttl <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, seenAt := range d.local {
		if now.Sub(seenAt) >= d.ttl {
			delete(d.local, id)
			removed++
		}
	}
	return removed
}
