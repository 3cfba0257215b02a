package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/config"
)

// Dedupe backends reported by Redis.DedupeBackend.
const (
	DedupeRedis     = "redis"
	DedupeInProcess = "in-process"
)

var errRedisNotConfigured = errors.New("redis client not configured")

// Redis wraps the go-redis client that backs webhook update de-duplication.
type Redis struct {
	Client *redis.Client
	addr   string
}

// NewRedis connects to Redis. An unreachable server is logged, not fatal:
// the de-duplicator falls back to its in-process set until Redis answers.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; update ids de-duplicated in process",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("update de-duplication backed by redis",
			zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.DedupeTTL))
	}

	return &Redis{Client: client, addr: cfg.Addr}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

// DedupeBackend names the store update ids currently land in, with the
// reason when Redis is bypassed.
func (r *Redis) DedupeBackend(ctx context.Context) (string, error) {
	if err := r.Ping(ctx); err != nil {
		return DedupeInProcess, err
	}
	return DedupeRedis, nil
}
