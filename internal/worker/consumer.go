// Package worker consumes parse jobs from the queue and drives each one to a
// terminal status ledger state, tolerating redelivery. Retry policy lives
// here, not in the transport: a job that fails on its third delivery goes to
// the dead-letter topic and is never redelivered.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/marinoska/cv-ingest/internal/middleware"
)

const extractTimeout = 120 * time.Second

type ParseConsumer struct {
	texts       TextFetcher
	extractor   CVExtractor
	ledger      StatusWriter
	deadLetters DeadLetterPublisher

	dlqTopic    string
	maxAttempts int
}

func NewParseConsumer(texts TextFetcher, ex CVExtractor, ledger StatusWriter, pub DeadLetterPublisher, dlqTopic string, maxAttempts int) *ParseConsumer {
	return &ParseConsumer{
		texts:       texts,
		extractor:   ex,
		ledger:      ledger,
		deadLetters: pub,
		dlqTopic:    dlqTopic,
		maxAttempts: maxAttempts,
	}
}

// HandleMessage applies the retry/dead-letter policy around one delivery.
// Returning nil acknowledges the message; returning an error requeues it.
func (c *ParseConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var job ParseJob
	if err := json.Unmarshal(m.Body, &job); err != nil {
		// Poison pill: an unparseable body can never succeed, park it for
		// inspection instead of letting it loop.
		slog.Error("poison pill: invalid parse job body", "error", err)
		c.deadLetter(context.Background(), m.Body)
		return nil
	}

	ctx := context.Background()
	if job.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, job.CorrelationID)
	}

	err := c.process(ctx, job)
	if err == nil {
		return nil
	}

	if int(m.Attempts) >= c.maxAttempts {
		slog.ErrorContext(ctx, "parse job exhausted retries, dead-lettering",
			"process_id", job.ProcessID, "attempts", m.Attempts, "error", err)
		c.deadLetter(ctx, m.Body)
		return nil
	}

	slog.WarnContext(ctx, "parse job failed, will retry",
		"process_id", job.ProcessID, "attempts", m.Attempts, "error", err)
	return err
}

// process drives one job: fetch the persisted raw text, run extraction and
// write the terminal ledger state. A failed `completed` write propagates so
// the delivery is retried; `failed` and `not-a-cv` write failures are
// swallowed because the job is already terminal and the write is idempotent.
func (c *ParseConsumer) process(ctx context.Context, job ParseJob) error {
	text, err := c.texts.RawText(ctx, job.UploadID)
	if err != nil {
		err = fmt.Errorf("fetch raw text: %w", err)
		c.markFailed(ctx, job, nil, err)
		return err
	}

	extractCtx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	result, err := c.extractor.Extract(extractCtx, text)
	if err != nil {
		var usage *Usage
		if result != nil {
			usage = result.Usage
		}
		c.markFailed(ctx, job, usage, err)
		return err
	}

	switch result.Outcome {
	case OutcomeNotACV:
		// Terminal success: the document just isn't a CV. Never retried.
		if err := c.ledger.Update(ctx, job.ProcessID, StatusNotACV, nil, "", result.Usage); err != nil {
			slog.WarnContext(ctx, "not-a-cv status write failed, swallowed",
				"process_id", job.ProcessID, "error", err)
		}
		slog.InfoContext(ctx, "document judged not a cv", "process_id", job.ProcessID)
		return nil

	case OutcomeCompleted:
		if err := c.ledger.Update(ctx, job.ProcessID, StatusCompleted, result.Profile, "", result.Usage); err != nil {
			// Losing a completed write means the caller would never see the
			// result; mark failed best-effort and retry the whole job.
			err = fmt.Errorf("write completed status: %w", err)
			c.markFailed(ctx, job, result.Usage, err)
			return err
		}
		slog.InfoContext(ctx, "parse job completed", "process_id", job.ProcessID)
		return nil
	}

	err = fmt.Errorf("unknown extraction outcome %q", result.Outcome)
	c.markFailed(ctx, job, result.Usage, err)
	return err
}

// markFailed writes the failed state best-effort, including usage when
// extraction ran far enough to know it. A failure of this write is only
// logged; the job error still propagates to the retry policy.
func (c *ParseConsumer) markFailed(ctx context.Context, job ParseJob, usage *Usage, cause error) {
	if err := c.ledger.Update(ctx, job.ProcessID, StatusFailed, nil, cause.Error(), usage); err != nil {
		slog.WarnContext(ctx, "failed status write failed, swallowed",
			"process_id", job.ProcessID, "error", err)
	}
}

// deadLetter publishes the original body to the dead-letter topic. Out of
// band: a publish failure is logged and never blocks the delivery outcome.
func (c *ParseConsumer) deadLetter(ctx context.Context, body []byte) {
	if err := c.deadLetters.Publish(c.dlqTopic, body); err != nil {
		slog.ErrorContext(ctx, "dead letter publish failed", "topic", c.dlqTopic, "error", err)
	}
}
