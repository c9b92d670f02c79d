package core

import "time"

// Challenge is a live ownership challenge for an identity
type Challenge struct {
	Identity string        // Username on the external platform
	Token    string        // Secret the identity must publish on its profile
	TTL      time.Duration // How long the challenge stays live
	Created  bool          // False when an already-live challenge was returned
}

// Validation is the outcome of checking a profile for its challenge token
type Validation struct {
	Identity  string
	Validated bool
	Proof     string // Signed ownership proof, empty when validation failed or proofs are disabled
}

// Proof attests that an identity demonstrated ownership of its profile
type Proof struct {
	ID        string    // Unique identifier for the proof
	Identity  string    // Username on the external platform
	Platform  string    // Profile URL base the identity was verified against
	IssuedAt  time.Time // When ownership was demonstrated
	ExpiresAt time.Time // When the proof stops being accepted
}
