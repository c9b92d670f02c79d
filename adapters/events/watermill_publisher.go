package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	TopicChallengeIssued   = "profileproof.challenge_issued"
	TopicIdentityValidated = "profileproof.identity_validated"
)

// IdentityEvent is published for challenge activity. The challenge token is
// deliberately absent.
type IdentityEvent struct {
	Identity   string    `json:"identity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishChallengeIssued announces a newly created challenge
func (p *WatermillPublisher) PublishChallengeIssued(ctx context.Context, identity string) error {
	return p.publish(ctx, TopicChallengeIssued, identity)
}

// PublishIdentityValidated announces a successful ownership check
func (p *WatermillPublisher) PublishIdentityValidated(ctx context.Context, identity string) error {
	return p.publish(ctx, TopicIdentityValidated, identity)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, identity string) error {
	event := IdentityEvent{
		Identity:   identity,
		OccurredAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards events, used when publishing is disabled
type NopPublisher struct{}

func (NopPublisher) PublishChallengeIssued(context.Context, string) error   { return nil }
func (NopPublisher) PublishIdentityValidated(context.Context, string) error { return nil }
