package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the amount of randomness in a challenge token
const TokenBytes = 16

// GenerateToken returns a random hex challenge token
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
