// Package ledger is the HTTP client for the status ledger: one addressable
// record per process id, transitioned to a terminal state when a parse job
// finishes. Writes are last-write-wins per process id, so repeating an
// identical write after a redelivery is harmless.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marinoska/cv-ingest/internal/worker"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type updatePayload struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Usage  *worker.Usage   `json:"usage,omitempty"`
}

// Update writes a terminal status. Whether a write failure propagates or is
// swallowed is the caller's decision; the client reports every failure.
func (c *Client) Update(ctx context.Context, processID string, status worker.Status, data json.RawMessage, errMsg string, usage *worker.Usage) error {
	payload := updatePayload{
		Status: string(status),
		Data:   data,
		Error:  errMsg,
		Usage:  usage,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/processes/" + url.PathEscape(processID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ledger api error: %d", resp.StatusCode)
	}
	return nil
}
