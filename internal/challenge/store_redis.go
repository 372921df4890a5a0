package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "challenge:"

// usedRetention keeps consumed challenges around after their TTL so a replay
// gets the distinct "already used" error instead of "unknown challenge".
const usedRetention = time.Hour

// RedisStore persists challenges in Redis for multi-instance deployments.
// Consume uses an optimistic WATCH transaction so two instances cannot both
// consume the same challenge.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed challenge store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, ch Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := time.Until(ch.ExpiresAt) + usedRetention
	if err := s.client.Set(ctx, keyPrefix+ch.Value, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, value string, now time.Time) error {
	key := keyPrefix + value

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrInvalidChallenge
		}
		if err != nil {
			return fmt.Errorf("get challenge: %w", err)
		}

		var ch Challenge
		if err := json.Unmarshal(raw, &ch); err != nil {
			return fmt.Errorf("unmarshal challenge: %w", err)
		}
		if ch.Used {
			return ErrChallengeUsed
		}
		if now.After(ch.ExpiresAt) {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return fmt.Errorf("evict expired challenge: %w", err)
			}
			return ErrChallengeExpired
		}

		ch.Used = true
		payload, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("marshal challenge: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return fmt.Errorf("mark challenge used: %w", err)
		}
		return nil
	}

	// Retry on WATCH conflicts; a conflicting consume wins and the retry then
	// observes the used flag.
	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrChallengeUsed
}

// DeleteExpired is a no-op for Redis: key TTLs bound retention server-side.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
