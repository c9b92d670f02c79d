package ports

import (
	"context"
	"time"
)

// ChallengeStore holds at most one live challenge token per identity
type ChallengeStore interface {
	// GetOrCreate stores candidate for identity unless a live token exists,
	// and returns whichever token is live afterwards.
	GetOrCreate(ctx context.Context, identity, candidate string, ttl time.Duration) (token string, created bool, err error)
	// Get returns the live token or core.ErrNoActiveChallenge.
	Get(ctx context.Context, identity string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}
