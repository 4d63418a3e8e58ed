// Package envseal is a Go client for the envseal token service HTTP API.
// It covers token issuance and verification; callers that only need to
// inspect an already-verified token can decode it with any JWT library.
package envseal

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

// Client talks to one envseal service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IssueRequest is the issuance payload.
type IssueRequest struct {
	AppID        string         `json:"app_id"`
	Subject      string         `json:"subject,omitempty"`
	Audience     []string       `json:"audience"`
	TTLSeconds   int64          `json:"ttl_seconds,omitempty"`
	CustomClaims map[string]any `json:"custom_claims,omitempty"`
	SigningKeyID string         `json:"signing_key_id,omitempty"`
}

// IssueResponse is the issuance result.
type IssueResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

// VerifyResponse is the verification result for a valid token.
type VerifyResponse struct {
	Valid     bool           `json:"valid"`
	AppID     string         `json:"app_id"`
	KeyID     string         `json:"key_id"`
	Subject   string         `json:"subject"`
	Audience  []string       `json:"audience"`
	IssuedAt  int64          `json:"issued_at"`
	ExpiresAt int64          `json:"expires_at"`
	Claims    map[string]any `json:"claims"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("envseal: %s (%s, http %d)", e.Description, e.Code, e.StatusCode)
}

// IsAPIError reports whether err is an APIError with the given code.
func IsAPIError(err error, code string) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == code
}

// IssueToken requests a new token.
func (c *Client) IssueToken(ctx context.Context, req IssueRequest) (*IssueResponse, error) {
	var resp IssueResponse
	if err := c.post(ctx, "/v1/tokens", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyToken asks the service to verify a serialized token.
func (c *Client) VerifyToken(ctx context.Context, token, signingKeyID string) (*VerifyResponse, error) {
	body := map[string]string{"token": token}
	if signingKeyID != "" {
		body["signing_key_id"] = signingKeyID
	}
	var resp VerifyResponse
	if err := c.post(ctx, "/v1/tokens/verify", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("envseal: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("envseal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("envseal: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("envseal: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "unknown"
			apiErr.Description = strings.TrimSpace(string(payload))
		}
		return apiErr
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("envseal: decode response: %w", err)
	}
	return nil
}
