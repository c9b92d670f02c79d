package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/profileproof/core"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedisStore(client, "")
	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func TestRedisStore_GetOrCreate(t *testing.T) {
	t.Run("stores candidate for new identity", func(t *testing.T) {
		s, mr := setupRedisStore(t)
		ctx := context.Background()

		token, created, err := s.GetOrCreate(ctx, "alice", "abc123", 5*time.Minute)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "abc123", token)

		stored, err := mr.Get(DefaultKeyPrefix + "alice")
		require.NoError(t, err)
		assert.Equal(t, "abc123", stored)
		assert.Equal(t, 5*time.Minute, mr.TTL(DefaultKeyPrefix+"alice"))
	})

	t.Run("returns live token unchanged", func(t *testing.T) {
		s, _ := setupRedisStore(t)
		ctx := context.Background()

		_, _, err := s.GetOrCreate(ctx, "alice", "first", time.Minute)
		require.NoError(t, err)

		token, created, err := s.GetOrCreate(ctx, "alice", "second", time.Minute)

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "first", token)
	})

	t.Run("identities are case sensitive", func(t *testing.T) {
		s, _ := setupRedisStore(t)
		ctx := context.Background()

		_, _, err := s.GetOrCreate(ctx, "alice", "lower", time.Minute)
		require.NoError(t, err)

		token, created, err := s.GetOrCreate(ctx, "Alice", "upper", time.Minute)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "upper", token)
	})

	t.Run("creates new token after expiry", func(t *testing.T) {
		s, mr := setupRedisStore(t)
		ctx := context.Background()

		_, _, err := s.GetOrCreate(ctx, "alice", "old", 5*time.Second)
		require.NoError(t, err)

		mr.FastForward(6 * time.Second)

		_, err = s.Get(ctx, "alice")
		assert.ErrorIs(t, err, core.ErrNoActiveChallenge)

		token, created, err := s.GetOrCreate(ctx, "alice", "new", 5*time.Second)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "new", token)
	})

	t.Run("concurrent claims resolve to one token", func(t *testing.T) {
		s, _ := setupRedisStore(t)
		ctx := context.Background()

		const workers = 20
		var wg sync.WaitGroup
		tokens := make([]string, workers)
		createdCount := make([]bool, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				token, created, err := s.GetOrCreate(ctx, "bob", fmt.Sprintf("candidate-%d", i), time.Minute)
				assert.NoError(t, err)
				tokens[i] = token
				createdCount[i] = created
			}(i)
		}
		wg.Wait()

		winners := 0
		for i := 0; i < workers; i++ {
			assert.Equal(t, tokens[0], tokens[i])
			if createdCount[i] {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestRedisStore_Get(t *testing.T) {
	t.Run("returns no active challenge for unknown identity", func(t *testing.T) {
		s, _ := setupRedisStore(t)

		_, err := s.Get(context.Background(), "nobody")

		assert.ErrorIs(t, err, core.ErrNoActiveChallenge)
	})

	t.Run("reports store unavailable when redis is down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
		defer s.Close()
		mr.Close()

		_, err = s.Get(context.Background(), "alice")

		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, core.ErrNoActiveChallenge)
	})
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "sa:")
	defer s.Close()

	_, _, err := s.GetOrCreate(context.Background(), "alice", "abc123", time.Minute)
	require.NoError(t, err)

	assert.True(t, mr.Exists("sa:alice"))
	assert.NoError(t, s.Ping(context.Background()))
}
