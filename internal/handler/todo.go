package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/todoapp/todo-backend/internal/auth"
	"github.com/todoapp/todo-backend/internal/handler/dto"
	"github.com/todoapp/todo-backend/internal/middleware"
	"github.com/todoapp/todo-backend/internal/service"
)

const (
	createFailed = "Create Todo item failed"
	updateFailed = "Update failed"
	deleteFailed = "Delete failed"
)

var errInvalidBody = errors.New("invalid request body")

// TodoHandler handles HTTP requests for todo operations.
type TodoHandler struct {
	svc    *service.TodoService
	logger *slog.Logger
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(svc *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /todos.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		h.writeFailure(w, createFailed, err)
		return
	}
	ctx := auth.ContextWithUserID(r.Context(), userID)

	var req dto.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, createFailed, errInvalidBody)
		return
	}

	item, err := h.svc.Create(ctx, userID, req.ToModel())
	if err != nil {
		h.writeFailure(w, createFailed, err)
		return
	}

	h.logger.Info("todo_created",
		"todo_id", item.TodoID,
		"user_id", userID,
	)

	middleware.AllowCredentials(w)
	writeJSON(w, http.StatusCreated, dto.ItemResponse{Item: item})
}

// List handles GET /todos.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		h.writeInternal(w, "list_todos_failed", err)
		return
	}
	ctx := auth.ContextWithUserID(r.Context(), userID)

	items, err := h.svc.ListForUser(ctx, userID)
	if err != nil {
		h.writeInternal(w, "list_todos_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ItemsResponse{Items: items})
}

// Update handles PATCH /todos/{todoId}.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		h.writeFailure(w, updateFailed, err)
		return
	}
	ctx := auth.ContextWithUserID(r.Context(), userID)

	var req dto.UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, updateFailed, errInvalidBody)
		return
	}

	update, err := req.ToModel()
	if err != nil {
		h.writeFailure(w, updateFailed, err)
		return
	}

	todoID := chi.URLParam(r, "todoId")
	if err := h.svc.UpdateForUser(ctx, userID, todoID, update); err != nil {
		h.writeFailure(w, updateFailed, err)
		return
	}

	h.logger.Info("todo_updated",
		"todo_id", todoID,
		"user_id", userID,
	)

	middleware.AllowCredentials(w)
	writeJSON(w, http.StatusOK, dto.EmptyResponse{})
}

// Delete handles DELETE /todos/{todoId}.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		h.writeFailure(w, deleteFailed, err)
		return
	}
	ctx := auth.ContextWithUserID(r.Context(), userID)

	todoID := chi.URLParam(r, "todoId")
	if err := h.svc.DeleteForUser(ctx, userID, todoID); err != nil {
		h.writeFailure(w, deleteFailed, err)
		return
	}

	h.logger.Info("todo_deleted",
		"todo_id", todoID,
		"user_id", userID,
	)

	middleware.AllowCredentials(w)
	writeJSON(w, http.StatusOK, dto.EmptyResponse{})
}

// writeFailure maps a create/update/delete error to "<action> - <message>".
// Not-found is a 404; every other failure is a 400.
func (h *TodoHandler) writeFailure(w http.ResponseWriter, action string, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, service.ErrTodoNotFound) {
		status = http.StatusNotFound
	}

	h.logger.Warn("todo_request_failed",
		"action", action,
		"status", status,
		"error", err,
	)

	writeJSON(w, status, dto.ErrorResponse{Error: action + " - " + err.Error()})
}

// writeInternal logs err and writes a 500 that does not leak the cause.
func (h *TodoHandler) writeInternal(w http.ResponseWriter, event string, err error) {
	h.logger.Error(event, "error", err)
	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
}
