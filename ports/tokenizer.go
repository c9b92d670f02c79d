package ports

import "github.com/layer-3/profileproof/core"

// Tokenizer converts between ownership proofs and signed tokens
type Tokenizer interface {
	ProofToToken(proof *core.Proof) (string, error)
	TokenToProof(token string) (*core.Proof, error)
}
