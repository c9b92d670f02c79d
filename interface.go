package profileproof

import "context"

// API represents the public interface for interacting with the profileproof service
type API interface {
	// GenerateHash returns the challenge hash the user must post on their profile
	GenerateHash(ctx context.Context, username string) (string, error)

	// ValidateUser checks the user's profile for their challenge hash
	ValidateUser(ctx context.Context, username string) (*Validation, error)

	// CheckProof verifies an ownership proof returned by ValidateUser
	CheckProof(ctx context.Context, proof string) (*ProofInfo, error)
}

// Validation is the result of ValidateUser
type Validation struct {
	Validated bool   `json:"validated"`
	Proof     string `json:"proof,omitempty"`
}

// ProofInfo describes a verified ownership proof
type ProofInfo struct {
	Valid     bool   `json:"valid"`
	Username  string `json:"username"`
	Platform  string `json:"platform"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}
