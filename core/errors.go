package core

import "errors"

var (
	// ErrInvalidIdentity is returned when an identity is empty, too long or contains control characters
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrNoActiveChallenge is returned when validation finds no live token for the identity
	ErrNoActiveChallenge = errors.New("no active challenge")
	// ErrFetchFailed is returned when the profile page could not be retrieved
	ErrFetchFailed = errors.New("profile fetch failed")
	// ErrStoreUnavailable is returned when the challenge store cannot be reached
	ErrStoreUnavailable = errors.New("challenge store unavailable")
	// ErrInvalidProof is returned when an ownership proof fails verification
	ErrInvalidProof = errors.New("invalid proof")
	// ErrProofUnavailable is returned when no signing key is configured
	ErrProofUnavailable = errors.New("proofs are not enabled")
)
