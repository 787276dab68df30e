package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/todoapp/todo-backend/internal/handler/dto"
	"github.com/todoapp/todo-backend/internal/metrics"
	"github.com/todoapp/todo-backend/internal/middleware"
)

// UploadURLIssuer signs a write URL for the object keyed by todoID.
type UploadURLIssuer interface {
	IssueUploadURL(ctx context.Context, todoID string) (string, error)
}

// UploadHandler issues pre-signed attachment upload URLs.
// It neither reads the store nor checks ownership.
type UploadHandler struct {
	issuer  UploadURLIssuer
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(issuer UploadURLIssuer, recorder metrics.Recorder, logger *slog.Logger) *UploadHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UploadHandler{
		issuer:  issuer,
		metrics: recorder,
		logger:  logger,
	}
}

// Generate handles POST /todos/{todoId}/attachment.
func (h *UploadHandler) Generate(w http.ResponseWriter, r *http.Request) {
	todoID := chi.URLParam(r, "todoId")

	url, err := h.issuer.IssueUploadURL(r.Context(), todoID)
	if err != nil {
		h.logger.Error("upload_url_failed",
			"todo_id", todoID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	h.metrics.IncUploadURLIssued()
	h.logger.Debug("upload_url_issued", "todo_id", todoID)

	middleware.AllowCredentials(w)
	writeJSON(w, http.StatusCreated, dto.UploadURLResponse{UploadURL: url})
}
