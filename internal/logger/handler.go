package logger

import (
	"context"
	"log/slog"

	"github.com/marinoska/cv-ingest/internal/middleware"
)

// ContextHandler enriches log records with the correlation id carried in the
// context, so upload-side and worker-side log lines for the same file join up.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := middleware.GetCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
