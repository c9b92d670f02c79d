package ports

import "context"

// EventPublisher notifies other services about challenge activity
type EventPublisher interface {
	PublishChallengeIssued(ctx context.Context, identity string) error
	PublishIdentityValidated(ctx context.Context, identity string) error
}
