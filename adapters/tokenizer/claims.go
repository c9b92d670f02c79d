package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ProofClaims combines standard claims with the verified platform
type ProofClaims struct {
	jwt.RegisteredClaims
	Platform string `json:"platform"`
}
