package core

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxIdentityLength bounds identities in bytes
const MaxIdentityLength = 256

// ValidateIdentity checks that an identity can be used as a store key and
// profile lookup. Identities are opaque and case-sensitive, so nothing is
// trimmed or folded.
func ValidateIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidIdentity)
	}
	if len(identity) > MaxIdentityLength {
		return fmt.Errorf("%w: username exceeds %d bytes", ErrInvalidIdentity, MaxIdentityLength)
	}
	if strings.IndexFunc(identity, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: username contains control characters", ErrInvalidIdentity)
	}
	return nil
}
