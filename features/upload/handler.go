package upload

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/marinoska/cv-ingest/internal/extractor"
)

type Handler struct {
	service   *Service
	authToken string
	maxBytes  int64
}

func NewHandler(service *Service, authToken string, maxBytes int64) *Handler {
	return &Handler{service: service, authToken: authToken, maxBytes: maxBytes}
}

// Upload accepts a binary body with the file metadata in headers:
// Authorization (service credential), X-User-Id, X-File-Name, Content-Type.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	userID := r.Header.Get("X-User-Id")
	if token == "" || userID == "" {
		h.writeError(r, w, "UNAUTHENTICATED", "Missing credentials", http.StatusUnauthorized)
		return
	}
	if token != h.authToken {
		h.writeError(r, w, "FORBIDDEN", "Invalid credentials", http.StatusForbidden)
		return
	}

	// Fast-path guards on the advertised length and declared type, before
	// reading the body. The post-read checks in the service still apply.
	if r.ContentLength > h.maxBytes {
		h.writeError(r, w, "TOO_LARGE", "File exceeds maximum upload size", http.StatusRequestEntityTooLarge)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !SupportedContentType(contentType) {
		h.writeError(r, w, "UNSUPPORTED_TYPE", "Unsupported content type", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(r, w, "TOO_LARGE", "File exceeds maximum upload size", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(r, w, "BAD_REQUEST", "Unable to read request body", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		h.writeError(r, w, "BAD_REQUEST", "Empty request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Handle(r.Context(), UploadRequest{
		FileName:    r.Header.Get("X-File-Name"),
		ContentType: r.Header.Get("Content-Type"),
		UserID:      userID,
		Data:        data,
	})
	if err != nil {
		h.writeServiceError(r, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeServiceError(r *http.Request, w http.ResponseWriter, err error) {
	var initErr *InitError
	var storeErr *StorageError
	var rejectErr *RejectedError

	switch {
	case errors.Is(err, ErrUnsupportedType):
		h.writeError(r, w, "UNSUPPORTED_TYPE", "Unsupported content type", http.StatusBadRequest)
	case errors.Is(err, ErrTooLarge):
		h.writeError(r, w, "TOO_LARGE", "File exceeds maximum upload size", http.StatusRequestEntityTooLarge)
	case errors.Is(err, extractor.ErrTypeMismatch):
		h.writeError(r, w, "TYPE_MISMATCH", "File content does not match declared type", http.StatusBadRequest)
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		h.writeError(r, w, "UNSUPPORTED_FORMAT", "Unrecognized file format", http.StatusBadRequest)
	case errors.Is(err, extractor.ErrExtractionFailed):
		h.writeError(r, w, "UNPARSEABLE", "Unable to extract text from file", http.StatusBadRequest)
	case errors.As(err, &rejectErr):
		h.writeError(r, w, "REJECTED", rejectErr.Reason, http.StatusInternalServerError)
	case errors.As(err, &initErr), errors.As(err, &storeErr):
		slog.ErrorContext(r.Context(), "upload failed", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	default:
		slog.ErrorContext(r.Context(), "upload failed", "error", err)
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode error response", "error", err)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
