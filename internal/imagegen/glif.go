package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whitecoat/internal/logger"
)

// GlifClient calls the Glif simple API as a fallback image provider.
type GlifClient struct {
	apiToken     string
	endpoint     string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
}

// GlifOption configures a GlifClient
type GlifOption func(*GlifClient)

// WithRetries sets the rate-limit retry budget and base backoff
func WithRetries(maxRetries int, backoff time.Duration) GlifOption {
	return func(c *GlifClient) {
		c.maxRetries = maxRetries
		c.retryBackoff = backoff
	}
}

// WithHTTPClient overrides the HTTP client (used in tests)
func WithHTTPClient(client *http.Client) GlifOption {
	return func(c *GlifClient) {
		c.httpClient = client
	}
}

// NewGlifClient creates a new Glif API client
func NewGlifClient(apiToken, endpoint string, opts ...GlifOption) *GlifClient {
	c := &GlifClient{
		apiToken:     apiToken,
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		maxRetries:   2,
		retryBackoff: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GlifClient) Name() string { return "glif" }

type glifRequest struct {
	Input string `json:"input"`
}

type glifResponse struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Generate produces one image URL. Rate-limit responses are retried with
// linearly increasing backoff up to the configured retry budget.
func (c *GlifClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiToken == "" {
		return "", fmt.Errorf("glif API token is not set")
	}
	log := logger.Get()

	for attempt := 0; ; attempt++ {
		imageURL, retryable, err := c.generateOnce(ctx, prompt)
		if err == nil {
			return imageURL, nil
		}
		if !retryable || attempt >= c.maxRetries {
			return "", err
		}

		wait := c.retryBackoff * time.Duration(attempt+1)
		log.Info("Glif rate limited, retrying", "wait", wait, "attempt", attempt+1, "max", c.maxRetries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (c *GlifClient) generateOnce(ctx context.Context, prompt string) (imageURL string, retryable bool, err error) {
	reqBody, err := json.Marshal(glifRequest{Input: prompt})
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("glif request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("glif API rate limited (status 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("glif API error (status %d): %s", resp.StatusCode, string(body))
	}

	var glifResp glifResponse
	if err := json.Unmarshal(body, &glifResp); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if glifResp.Error != "" {
		return "", false, fmt.Errorf("glif API error: %s", glifResp.Error)
	}
	if glifResp.Output == "" {
		return "", false, fmt.Errorf("glif API returned no output")
	}

	return glifResp.Output, false, nil
}
