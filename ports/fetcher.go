package ports

import "context"

// ProfileFetcher retrieves the raw public profile of an identity
type ProfileFetcher interface {
	Fetch(ctx context.Context, identity string) (string, error)
}
