// Package assist talks to an external generative-language service used to
// draft replies to customer feedback. The service is an opaque collaborator
// with its own failure modes; nothing here affects classification.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const completePath = "/v1/complete"
const maxResponseBodyBytes = 1 << 20 // 1 MiB

// Defaults applied by NewClient when the config leaves them zero.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultTimeout        = 30 * time.Second
)

var (
	// ErrMissingBaseURL is returned by NewClient without a service URL.
	ErrMissingBaseURL = errors.New("assist: base URL is required")
	// ErrEmptyPrompt is returned by Draft for a blank prompt.
	ErrEmptyPrompt = errors.New("assist: prompt is empty")
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxAttempts    int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Client is a completion-contract client with retry and exponential backoff.
type Client struct {
	baseURL        string
	apiKey         string
	model          string
	maxAttempts    int
	initialBackoff time.Duration
	httpClient     *http.Client
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	client := &Client{
		baseURL:        baseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		httpClient:     cfg.HTTPClient,
	}
	if client.maxAttempts <= 0 {
		client.maxAttempts = DefaultMaxAttempts
	}
	if client.initialBackoff <= 0 {
		client.initialBackoff = DefaultInitialBackoff
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return client, nil
}

type completeRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Draft asks the service to draft a reply to prompt. Transport failures,
// 429s, and 5xx responses are retried with doubling backoff up to the attempt
// cap; other failures return immediately. Context cancellation wins over any
// pending retry.
func (c *Client) Draft(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	backoff := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, retryable, err := c.complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("assist: giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

// complete performs one request. The bool reports whether the failure is
// worth retrying.
func (c *Client) complete(ctx context.Context, prompt string) (string, bool, error) {
	payload, err := json.Marshal(completeRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", false, fmt.Errorf("assist: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completePath, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("assist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("assist: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return "", true, fmt.Errorf("assist: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("assist: service returned status %d", resp.StatusCode)
	}

	var decoded completeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", false, fmt.Errorf("assist: decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", false, fmt.Errorf("assist: service error: %s", decoded.Error)
	}
	return decoded.Text, false, nil
}
