package profileproof

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds client calls when no http.Client is supplied
const DefaultTimeout = 30 * time.Second

// Client talks to a profileproof server over HTTP
type Client struct {
	baseURL string
	http    *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a new client. httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// GenerateHash returns the challenge hash for username
func (c *Client) GenerateHash(ctx context.Context, username string) (string, error) {
	var resp struct {
		Hash string `json:"hash"`
	}
	if err := c.post(ctx, "/v1/generate_hash", map[string]string{"username": username}, &resp); err != nil {
		return "", err
	}
	return resp.Hash, nil
}

// ValidateUser checks username's profile for its hash
func (c *Client) ValidateUser(ctx context.Context, username string) (*Validation, error) {
	var resp Validation
	if err := c.post(ctx, "/v1/validate_user", map[string]string{"username": username}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckProof verifies an ownership proof
func (c *Client) CheckProof(ctx context.Context, proof string) (*ProofInfo, error) {
	var resp ProofInfo
	if err := c.post(ctx, "/v1/check_proof", map[string]string{"proof": proof}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Title == "" {
			apiErr.Title = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
