// Package downlink pushes queued commands to the network server. It attaches
// the application credential and builds the device URL; retry, queueing and
// persistence of pending downlinks are deliberately out of scope.
package downlink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	config "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Config"
)

// ErrMissingAPIKey is the call-time configuration error for an absent
// application credential.
var ErrMissingAPIKey = errors.New("TTN_API_KEY is not configured")

// ErrMissingApplicationID is the call-time configuration error for an absent
// application identifier.
var ErrMissingApplicationID = errors.New("TTN_APPLICATION_ID is not configured")

// Client talks to the application server's downlink push API.
type Client struct {
	serverURL     string
	applicationID string
	apiKey        string
	httpClient    *http.Client
}

// NewClient creates a downlink client from the TTN configuration. A missing
// credential is not an error here; it surfaces on the first Push.
func NewClient(cfg *config.TTNConfig) *Client {
	return &Client{
		serverURL:     cfg.ServerURL,
		applicationID: cfg.ApplicationID,
		apiKey:        cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type downlinkItem struct {
	FPort      uint8  `json:"f_port"`
	FrmPayload string `json:"frm_payload"`
	Priority   string `json:"priority"`
}

type pushRequest struct {
	Downlinks []downlinkItem `json:"downlinks"`
}

// Push queues one downlink for a device. The upstream response body is
// returned decoded so the caller can forward it verbatim.
func (c *Client) Push(ctx context.Context, deviceID string, fPort uint8, frmPayload string) (map[string]interface{}, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if c.applicationID == "" {
		return nil, ErrMissingApplicationID
	}

	body, err := json.Marshal(pushRequest{
		Downlinks: []downlinkItem{{
			FPort:      fPort,
			FrmPayload: frmPayload,
			Priority:   "NORMAL",
		}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v3/as/applications/%s/devices/%s/down/push",
		c.serverURL, c.applicationID, deviceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downlink push: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("downlink push: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("downlink push rejected: %s: %s", resp.Status, string(respBody))
	}

	result := map[string]interface{}{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			// The push succeeded; a non-JSON body is preserved raw.
			result = map[string]interface{}{"raw": string(respBody)}
		}
	}
	return result, nil
}
