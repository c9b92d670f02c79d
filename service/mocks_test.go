package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/layer-3/profileproof/core"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) GetOrCreate(ctx context.Context, identity, candidate string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, identity, candidate, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) Get(ctx context.Context, identity string) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                   { return m.Called().Error(0) }

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx context.Context, identity string) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishChallengeIssued(ctx context.Context, identity string) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *mockPublisher) PublishIdentityValidated(ctx context.Context, identity string) error {
	return m.Called(ctx, identity).Error(0)
}

type mockTokenizer struct{ mock.Mock }

func (m *mockTokenizer) ProofToToken(proof *core.Proof) (string, error) {
	args := m.Called(proof)
	return args.String(0), args.Error(1)
}

func (m *mockTokenizer) TokenToProof(token string) (*core.Proof, error) {
	args := m.Called(token)
	proof, _ := args.Get(0).(*core.Proof)
	return proof, args.Error(1)
}
