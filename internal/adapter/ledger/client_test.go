package ledger_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marinoska/cv-ingest/internal/adapter/ledger"
	"github.com/marinoska/cv-ingest/internal/worker"
)

func TestUpdate_Completed(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := ledger.NewClient(ts.URL)
	err := c.Update(context.Background(), "proc-1", worker.StatusCompleted,
		json.RawMessage(`{"name":"Jane"}`), "", &worker.Usage{PromptTokens: 10, TotalTokens: 15})

	assert.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/processes/proc-1", gotPath)
	assert.JSONEq(t, `{
		"status": "completed",
		"data": {"name":"Jane"},
		"usage": {"prompt_tokens":10,"output_tokens":0,"total_tokens":15}
	}`, string(gotBody))
}

func TestUpdate_FailedWithError(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := ledger.NewClient(ts.URL)
	err := c.Update(context.Background(), "proc-1", worker.StatusFailed, nil, "fetch raw text: object missing", nil)

	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":"failed","error":"fetch raw text: object missing"}`, string(gotBody))
}

func TestUpdate_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := ledger.NewClient(ts.URL)
	err := c.Update(context.Background(), "proc-1", worker.StatusNotACV, nil, "", nil)
	assert.Error(t, err)
}

func TestUpdate_Unreachable(t *testing.T) {
	c := ledger.NewClient("http://127.0.0.1:1")
	err := c.Update(context.Background(), "proc-1", worker.StatusFailed, nil, "boom", nil)
	assert.Error(t, err)
}
