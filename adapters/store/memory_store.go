package store

import (
	"context"
	"time"

	"github.com/layer-3/profileproof/core"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process implementation of the ChallengeStore interface.
// State is not shared between instances, so it only suits single-node
// deployments and tests.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a new in-memory store. Expired entries are swept
// every cleanupInterval; reads never return them in the meantime.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// GetOrCreate stores candidate unless identity already has a live token
func (s *MemoryStore) GetOrCreate(ctx context.Context, identity, candidate string, ttl time.Duration) (string, bool, error) {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		// Add fails only while a live item exists for the key
		if err := s.cache.Add(identity, candidate, ttl); err == nil {
			return candidate, true, nil
		}
		if token, ok := s.cache.Get(identity); ok {
			return token.(string), false, nil
		}
	}
	return "", false, core.ErrStoreUnavailable
}

// Get returns the live challenge token for identity
func (s *MemoryStore) Get(ctx context.Context, identity string) (string, error) {
	token, ok := s.cache.Get(identity)
	if !ok {
		return "", core.ErrNoActiveChallenge
	}
	return token.(string), nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close removes all challenges
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
