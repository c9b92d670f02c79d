package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/profileproof/core"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces challenge keys in a shared Redis database
const DefaultKeyPrefix = "profileproof:challenge:"

// maxClaimAttempts bounds the SETNX/GET loop when a key expires between the two calls
const maxClaimAttempts = 3

// RedisStore is a Redis implementation of the ChallengeStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// GetOrCreate claims identity with candidate using SET NX, falling back to
// the token already stored when the claim loses
func (s *RedisStore) GetOrCreate(ctx context.Context, identity, candidate string, ttl time.Duration) (string, bool, error) {
	key := s.prefix + identity

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		ok, err := s.client.SetNX(ctx, key, candidate, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("%w: failed to store challenge: %w", core.ErrStoreUnavailable, err)
		}
		if ok {
			return candidate, true, nil
		}

		token, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("%w: failed to read challenge: %w", core.ErrStoreUnavailable, err)
		}
		return token, false, nil
	}

	return "", false, fmt.Errorf("%w: could not claim challenge after %d attempts", core.ErrStoreUnavailable, maxClaimAttempts)
}

// Get returns the live challenge token for identity
func (s *RedisStore) Get(ctx context.Context, identity string) (string, error) {
	token, err := s.client.Get(ctx, s.prefix+identity).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrNoActiveChallenge
		}
		return "", fmt.Errorf("%w: failed to read challenge: %w", core.ErrStoreUnavailable, err)
	}
	return token, nil
}

// Ping checks that Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
