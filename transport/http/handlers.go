package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/profileproof/core"
)

// Verifier is the behaviour the handlers need from the service layer
type Verifier interface {
	IssueChallenge(ctx context.Context, identity string) (core.Challenge, error)
	Validate(ctx context.Context, identity string) (core.Validation, error)
	CheckProof(ctx context.Context, proof string) (core.Proof, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// VerificationHandlers contains HTTP handlers for verification endpoints
type VerificationHandlers struct {
	verifier Verifier
	health   Pinger
	logger   *zap.Logger
}

// NewVerificationHandlers creates new verification handlers
func NewVerificationHandlers(verifier Verifier, health Pinger, logger *zap.Logger) *VerificationHandlers {
	return &VerificationHandlers{
		verifier: verifier,
		health:   health,
		logger:   logger,
	}
}

type usernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// GenerateHash issues (or re-issues) the challenge token for a username
func (h *VerificationHandlers) GenerateHash(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username is required")
		return
	}

	challenge, err := h.verifier.IssueChallenge(c.Request.Context(), req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hash": challenge.Token})
}

// ValidateUser checks the username's profile for its challenge token
func (h *VerificationHandlers) ValidateUser(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username is required")
		return
	}

	result, err := h.verifier.Validate(c.Request.Context(), req.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{"validated": result.Validated}
	if result.Proof != "" {
		resp["proof"] = result.Proof
	}
	c.JSON(http.StatusOK, resp)
}

// CheckProof verifies an ownership proof issued by ValidateUser
func (h *VerificationHandlers) CheckProof(c *gin.Context) {
	var req struct {
		Proof string `json:"proof" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "proof is required")
		return
	}

	proof, err := h.verifier.CheckProof(c.Request.Context(), req.Proof)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"username":   proof.Identity,
		"platform":   proof.Platform,
		"issued_at":  proof.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at": proof.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Health reports whether the challenge store is reachable
func (h *VerificationHandlers) Health(c *gin.Context) {
	if err := h.health.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "description": description})
}

// writeError maps domain errors to status codes. Server-side failures never
// expose their cause to the caller.
func (h *VerificationHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidIdentity):
		badRequest(c, err.Error())
	case errors.Is(err, core.ErrNoActiveChallenge):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Hash Missing",
			"description": "A hash does not exist for this username. Run /v1/generate_hash first",
		})
	case errors.Is(err, core.ErrFetchFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Profile fetch failed"})
	case errors.Is(err, core.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Challenge store unavailable"})
	case errors.Is(err, core.ErrInvalidProof):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid proof"})
	case errors.Is(err, core.ErrProofUnavailable):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Proofs are not enabled"})
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
