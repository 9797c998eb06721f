package worker

import (
	"context"
	"encoding/json"
)

// Status is a terminal state in the process status ledger.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusNotACV    Status = "not-a-cv"
)

// Outcome distinguishes the two successful terminal results of an extraction.
// A document the model judges not to be a CV is not a failure and must never
// consume retries.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNotACV    Outcome = "not-a-cv"
)

type Usage struct {
	PromptTokens int32 `json:"prompt_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

type ExtractionResult struct {
	Outcome      Outcome
	Profile      json.RawMessage
	Usage        *Usage
	FinishReason string
}

// ParseJob is the queue message body. The delivery attempt counter is owned
// by the transport (nsq.Message.Attempts) and is not part of the body.
type ParseJob struct {
	UploadID      string `json:"upload_id"`
	FileID        string `json:"file_id"`
	ProcessID     string `json:"process_id"`
	UserID        string `json:"user_id"`
	FileType      string `json:"file_type"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type TextFetcher interface {
	RawText(ctx context.Context, uploadID string) (string, error)
}

// CVExtractor may return a non-nil result together with an error when usage
// accounting is known even though extraction failed later on.
type CVExtractor interface {
	Extract(ctx context.Context, rawText string) (*ExtractionResult, error)
}

type StatusWriter interface {
	Update(ctx context.Context, processID string, status Status, data json.RawMessage, errMsg string, usage *Usage) error
}

type DeadLetterPublisher interface {
	Publish(topic string, body []byte) error
}
