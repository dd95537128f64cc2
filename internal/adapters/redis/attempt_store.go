package redis

import (
	"ImeiGuard/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "imeiguard:attempts:"

// attemptStore keeps failure counters and lockouts in Redis so they survive
// restarts and are shared between bot replicas.
type attemptStore struct {
	client *redis.Client
	now    func() time.Time
	log    zerolog.Logger
}

var _ ports.AttemptStore = (*attemptStore)(nil)

// NewAttemptStore creates a Redis-backed attempt store. A nil clock uses time.Now.
func NewAttemptStore(client *redis.Client, now func() time.Time, baseLogger *zerolog.Logger) ports.AttemptStore {
	if now == nil {
		now = time.Now
	}
	return &attemptStore{
		client: client,
		now:    now,
		log:    baseLogger.With().Str("component", "redis_attempt_store").Logger(),
	}
}

func countKey(key string) string { return keyPrefix + key + ":count" }
func lockKey(key string) string  { return keyPrefix + key + ":lock" }

func (s *attemptStore) RecordFailure(ctx context.Context, key string) (int, error) {
	n, err := s.client.Incr(ctx, countKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return int(n), nil
}

// Lock stores the expiry and lets the counter lapse together with the lock.
func (s *attemptStore) Lock(ctx context.Context, key string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return s.Reset(ctx, key)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lockKey(key), strconv.FormatInt(until.UnixMilli(), 10), ttl)
		pipe.Expire(ctx, countKey(key), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store lock: %w", err)
	}
	s.log.Info().Str("key", key).Time("until", until).Msg("Attempts locked")
	return nil
}

func (s *attemptStore) LockedUntil(ctx context.Context, key string) (time.Time, error) {
	val, err := s.client.Get(ctx, lockKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read lock: %w", err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse lock: %w", err)
	}
	until := time.UnixMilli(ms)
	if !s.now().Before(until) {
		return time.Time{}, s.Reset(ctx, key)
	}
	return until, nil
}

func (s *attemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, countKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}
