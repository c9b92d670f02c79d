package tokenizer

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/profileproof/core"
)

const AudienceOwnership = "profileproof:ownership"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	issuer  string
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, issuer string) *JWTTokenizer {
	return &JWTTokenizer{signKey: signKey, issuer: issuer}
}

// NewJWTTokenizerFromFile loads a PEM encoded EC private key
func NewJWTTokenizerFromFile(path, issuer string) (*JWTTokenizer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	return NewJWTTokenizer(key, issuer), nil
}

// ProofToToken converts a Proof to a signed JWT
func (j *JWTTokenizer) ProofToToken(proof *core.Proof) (string, error) {
	claims := ProofClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   proof.Identity,
			ID:        proof.ID,
			ExpiresAt: jwt.NewNumericDate(proof.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(proof.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceOwnership},
		},
		Platform: proof.Platform,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign proof: %w", err)
	}

	return signedToken, nil
}

// TokenToProof verifies a JWT and converts it back to a Proof
func (j *JWTTokenizer) TokenToProof(tokenStr string) (*core.Proof, error) {
	opts := []jwt.ParserOption{
		jwt.WithAudience(AudienceOwnership),
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &ProofClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidProof, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidProof
	}

	claims, ok := token.Claims.(*ProofClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", core.ErrInvalidProof)
	}

	proof := &core.Proof{
		ID:        claims.ID,
		Identity:  claims.Subject,
		Platform:  claims.Platform,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		proof.IssuedAt = claims.IssuedAt.Time
	}

	return proof, nil
}
