package worker_test

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/marinoska/cv-ingest/internal/worker"
)

type MockTextFetcher struct {
	mock.Mock
}

func (m *MockTextFetcher) RawText(ctx context.Context, uploadID string) (string, error) {
	args := m.Called(ctx, uploadID)
	return args.String(0), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, rawText string) (*worker.ExtractionResult, error) {
	args := m.Called(ctx, rawText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*worker.ExtractionResult), args.Error(1)
}

type MockStatusWriter struct {
	mock.Mock
}

func (m *MockStatusWriter) Update(ctx context.Context, processID string, status worker.Status, data json.RawMessage, errMsg string, usage *worker.Usage) error {
	args := m.Called(ctx, processID, status, data, errMsg, usage)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}
