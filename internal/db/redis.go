package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
)

const (
	runLockKey = "forecast:run:lock"
	lastRunKey = "forecast:last_run"
)

// RedisStore wraps a redis client used for run coordination and caching.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// AcquireRunLock takes the forecast run lock for runID. It returns false when
// another run already holds the lock. The TTL guards against a crashed run
// holding the lock forever.
func (r *RedisStore) AcquireRunLock(ctx context.Context, runID string, ttl time.Duration) (bool, error) {
	ok, err := r.Client.SetNX(ctx, runLockKey, runID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	return ok, nil
}

// ReleaseRunLock releases the forecast run lock if runID still holds it.
func (r *RedisStore) ReleaseRunLock(ctx context.Context, runID string) error {
	holder, err := r.Client.Get(ctx, runLockKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read run lock: %w", err)
	}
	if holder != runID {
		return nil
	}
	if err := r.Client.Del(ctx, runLockKey).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// CacheLastRun stores the latest run result as JSON with the given TTL so
// operators can inspect it and persistence can survive a process restart.
func (r *RedisStore) CacheLastRun(ctx context.Context, result *models.ForecastRunResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	if err := r.Client.Set(ctx, lastRunKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache run result: %w", err)
	}
	return nil
}

// LastRun returns the most recently cached run result, or nil when absent.
func (r *RedisStore) LastRun(ctx context.Context) (*models.ForecastRunResult, error) {
	payload, err := r.Client.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached run: %w", err)
	}
	var result models.ForecastRunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode cached run: %w", err)
	}
	return &result, nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
