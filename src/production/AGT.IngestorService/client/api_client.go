package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient forwards uplink envelopes to the API service's webhook endpoint.
// The ingestor owns redelivery for its transport leg, so transient failures
// are retried with a bounded budget; client errors are permanent.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewAPIClient creates a new API client.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		retryDelay: 1 * time.Second,
	}
}

// ForwardUplink posts one raw uplink envelope to the webhook endpoint. The
// envelope bytes are passed through untouched; the API service owns all
// validation and decoding.
func (c *APIClient) ForwardUplink(ctx context.Context, envelope []byte) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		retryable, err := c.post(ctx, envelope)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("forward uplink: retries exhausted: %w", lastErr)
}

func (c *APIClient) post(ctx context.Context, envelope []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ttnWebhook", bytes.NewReader(envelope))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("api service: %s: %s", resp.Status, string(body))
	default:
		// 4xx: the envelope itself is bad, a retry cannot fix it
		return false, fmt.Errorf("api service rejected envelope: %s: %s", resp.Status, string(body))
	}
}

// Health checks the API service's health endpoint.
func (c *APIClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api service unhealthy: %s", resp.Status)
	}
	return nil
}
