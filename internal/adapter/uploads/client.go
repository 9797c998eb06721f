// Package uploads is the HTTP client for the collaborator that owns file
// records: it reserves pending records, commits or rejects them on finalize,
// recognizes duplicate content by hash and serves the persisted raw text.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marinoska/cv-ingest/internal/middleware"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type UploadMeta struct {
	FileName    string `json:"filename"`
	ContentType string `json:"content_type"`
	UserID      string `json:"user_id"`
}

type InitResult struct {
	FileID    string `json:"file_id"`
	ObjectKey string `json:"object_key"`
	ProcessID string `json:"process_id"`
}

// Init reserves a pending file record, an object key and a process id. No
// bytes have been stored at this point.
func (c *Client) Init(ctx context.Context, meta UploadMeta) (*InitResult, error) {
	var result InitResult
	if err := c.post(ctx, "/files/init", meta, &result); err != nil {
		return nil, err
	}
	if result.FileID == "" || result.ObjectKey == "" || result.ProcessID == "" {
		return nil, fmt.Errorf("init response missing identifiers")
	}
	return &result, nil
}

type FinalizeRequest struct {
	FileID    string `json:"file_id"`
	ProcessID string `json:"process_id"`
	Size      int64  `json:"size"`
	RawText   string `json:"raw_text"`
	FileHash  string `json:"file_hash"`
}

type FinalizeOutcome int

const (
	FinalizeCommitted FinalizeOutcome = iota
	FinalizeRejected
	FinalizeDuplicate
)

type FinalizeResult struct {
	Outcome   FinalizeOutcome
	FileID    string
	ProcessID string

	// Rejected
	Reason string

	// Duplicate: identifiers of the previously committed upload.
	ExistingFileID    string
	ExistingProcessID string
}

// Finalize commits the record and enqueues the parse job, or reports that the
// collaborator rejected the upload or already holds identical content. All
// three shapes arrive in-band with a 2xx status; a non-2xx is a transport
// failure.
func (c *Client) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	var body struct {
		FileID            string `json:"file_id"`
		ProcessID         string `json:"process_id"`
		Error             string `json:"error"`
		ExistingFileID    string `json:"existing_file_id"`
		ExistingProcessID string `json:"existing_process_id"`
	}
	if err := c.post(ctx, "/files/finalize", req, &body); err != nil {
		return nil, err
	}

	switch {
	case body.ExistingFileID != "":
		return &FinalizeResult{
			Outcome:           FinalizeDuplicate,
			ExistingFileID:    body.ExistingFileID,
			ExistingProcessID: body.ExistingProcessID,
		}, nil
	case body.Error != "":
		return &FinalizeResult{Outcome: FinalizeRejected, Reason: body.Error}, nil
	case body.FileID != "":
		return &FinalizeResult{Outcome: FinalizeCommitted, FileID: body.FileID, ProcessID: body.ProcessID}, nil
	}
	return nil, fmt.Errorf("finalize response carries no outcome")
}

// RawText returns the extracted text the finalize call persisted for an
// upload. The worker refetches it on every delivery attempt.
func (c *Client) RawText(ctx context.Context, uploadID string) (string, error) {
	endpoint := c.baseURL + "/uploads/" + url.PathEscape(uploadID) + "/text"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if id := middleware.GetCorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("uploads api error: %d", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Text, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	// The collaborator stamps this id into the parse job it enqueues, which
	// is what lets worker logs join up with the originating upload request.
	if id := middleware.GetCorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("uploads api error: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
