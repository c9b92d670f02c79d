package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/profileproof/core"
	"github.com/layer-3/profileproof/metrics"
	"github.com/layer-3/profileproof/ports"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultProofTTL     = 24 * time.Hour
)

// Options tunes a VerificationService. Zero values use the defaults.
type Options struct {
	ChallengeTTL time.Duration
	ProofTTL     time.Duration
	// Platform labels proofs with where ownership was shown
	Platform string
	// Tokenizer signs ownership proofs; nil disables them
	Tokenizer ports.Tokenizer
	// NewToken overrides GenerateToken
	NewToken func() (string, error)
}

// VerificationService issues challenges and checks profiles for them
type VerificationService struct {
	store     ports.ChallengeStore
	fetcher   ports.ProfileFetcher
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	logger    *zap.Logger

	challengeTTL time.Duration
	proofTTL     time.Duration
	platform     string
	newToken     func() (string, error)
	now          func() time.Time
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	store ports.ChallengeStore,
	fetcher ports.ProfileFetcher,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
	opts Options,
) *VerificationService {
	s := &VerificationService{
		store:        store,
		fetcher:      fetcher,
		tokenizer:    opts.Tokenizer,
		eventPub:     eventPub,
		logger:       logger.Named("verification"),
		challengeTTL: opts.ChallengeTTL,
		proofTTL:     opts.ProofTTL,
		platform:     opts.Platform,
		newToken:     opts.NewToken,
		now:          time.Now,
	}
	if s.challengeTTL <= 0 {
		s.challengeTTL = DefaultChallengeTTL
	}
	if s.proofTTL <= 0 {
		s.proofTTL = DefaultProofTTL
	}
	if s.newToken == nil {
		s.newToken = GenerateToken
	}
	return s
}

// ChallengeTTL reports how long issued challenges stay live
func (s *VerificationService) ChallengeTTL() time.Duration {
	return s.challengeTTL
}

// IssueChallenge returns the live challenge for identity, creating one if needed
func (s *VerificationService) IssueChallenge(ctx context.Context, identity string) (core.Challenge, error) {
	if err := core.ValidateIdentity(identity); err != nil {
		metrics.ChallengesIssued.WithLabelValues(metrics.ResultInvalid).Inc()
		return core.Challenge{}, err
	}

	candidate, err := s.newToken()
	if err != nil {
		metrics.ChallengesIssued.WithLabelValues(metrics.ResultError).Inc()
		return core.Challenge{}, err
	}

	token, created, err := s.store.GetOrCreate(ctx, identity, candidate, s.challengeTTL)
	if err != nil {
		metrics.ChallengesIssued.WithLabelValues(metrics.ResultStoreError).Inc()
		s.logger.Error("failed to store challenge", zap.String("identity", identity), zap.Error(err))
		return core.Challenge{}, err
	}

	if !created {
		metrics.ChallengesIssued.WithLabelValues(metrics.ResultReused).Inc()
		return core.Challenge{Identity: identity, Token: token, TTL: s.challengeTTL}, nil
	}

	metrics.ChallengesIssued.WithLabelValues(metrics.ResultCreated).Inc()
	s.logger.Info("challenge issued", zap.String("identity", identity))

	// The challenge is already stored, so a lost event is not fatal
	if err := s.eventPub.PublishChallengeIssued(ctx, identity); err != nil {
		s.logger.Warn("failed to publish challenge event", zap.String("identity", identity), zap.Error(err))
	}

	return core.Challenge{Identity: identity, Token: token, TTL: s.challengeTTL, Created: true}, nil
}

// Validate checks whether identity's profile currently shows its challenge token
func (s *VerificationService) Validate(ctx context.Context, identity string) (core.Validation, error) {
	if err := core.ValidateIdentity(identity); err != nil {
		metrics.Validations.WithLabelValues(metrics.ResultInvalid).Inc()
		return core.Validation{}, err
	}

	token, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, core.ErrNoActiveChallenge) {
			metrics.Validations.WithLabelValues(metrics.ResultNoChallenge).Inc()
		} else {
			metrics.Validations.WithLabelValues(metrics.ResultStoreError).Inc()
			s.logger.Error("failed to read challenge", zap.String("identity", identity), zap.Error(err))
		}
		return core.Validation{}, err
	}

	content, err := s.fetcher.Fetch(ctx, identity)
	if err != nil {
		metrics.Validations.WithLabelValues(metrics.ResultFetchError).Inc()
		if !errors.Is(err, core.ErrFetchFailed) {
			err = errors.Join(core.ErrFetchFailed, err)
		}
		return core.Validation{}, err
	}

	result := core.Validation{
		Identity:  identity,
		Validated: ContainsToken(content, token),
	}

	if !result.Validated {
		metrics.Validations.WithLabelValues(metrics.ResultNotValidated).Inc()
		return result, nil
	}

	metrics.Validations.WithLabelValues(metrics.ResultValidated).Inc()
	s.logger.Info("identity validated", zap.String("identity", identity))

	if s.tokenizer != nil {
		proof, err := s.issueProof(identity)
		if err != nil {
			// Validation itself succeeded; callers can retry for a proof
			s.logger.Error("failed to sign proof", zap.String("identity", identity), zap.Error(err))
		} else {
			result.Proof = proof
		}
	}

	if err := s.eventPub.PublishIdentityValidated(ctx, identity); err != nil {
		s.logger.Warn("failed to publish validation event", zap.String("identity", identity), zap.Error(err))
	}

	return result, nil
}

// CheckProof verifies a proof issued by a previous successful validation
func (s *VerificationService) CheckProof(ctx context.Context, proofToken string) (core.Proof, error) {
	if s.tokenizer == nil {
		return core.Proof{}, core.ErrProofUnavailable
	}

	proof, err := s.tokenizer.TokenToProof(proofToken)
	if err != nil {
		return core.Proof{}, err
	}

	return *proof, nil
}

func (s *VerificationService) issueProof(identity string) (string, error) {
	now := s.now()
	return s.tokenizer.ProofToToken(&core.Proof{
		ID:        uuid.New().String(),
		Identity:  identity,
		Platform:  s.platform,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.proofTTL),
	})
}

// ContainsToken reports whether content holds token verbatim. Tokens are
// matched literally, never as patterns.
func ContainsToken(content, token string) bool {
	if token == "" {
		return false
	}
	return strings.Contains(content, token)
}
