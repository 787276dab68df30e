// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/todoapp/todo-backend/internal/model"
)

// CreateTodoRequest is the body of POST /todos.
type CreateTodoRequest struct {
	Name    string  `json:"name"`
	DueDate *string `json:"dueDate,omitempty"`
}

// ToModel converts the request to its domain form.
func (r CreateTodoRequest) ToModel() model.CreateTodoRequest {
	return model.CreateTodoRequest{
		Name:    r.Name,
		DueDate: r.DueDate,
	}
}

// UpdateTodoRequest is the body of PATCH /todos/{todoId}.
// Every field is written; an absent dueDate clears the stored one.
// name and done must be present.
type UpdateTodoRequest struct {
	Name    *string `json:"name"`
	DueDate *string `json:"dueDate"`
	Done    *bool   `json:"done"`
}

// ToModel converts the request to its domain form.
// Returns model.ErrMissingName or model.ErrMissingDone if a required field is absent.
func (r UpdateTodoRequest) ToModel() (model.UpdateTodoRequest, error) {
	if r.Name == nil {
		return model.UpdateTodoRequest{}, model.ErrMissingName
	}
	if r.Done == nil {
		return model.UpdateTodoRequest{}, model.ErrMissingDone
	}
	return model.UpdateTodoRequest{
		Name:    *r.Name,
		DueDate: r.DueDate,
		Done:    *r.Done,
	}, nil
}

// ItemResponse wraps a single created item.
type ItemResponse struct {
	Item *model.TodoItem `json:"item"`
}

// ItemsResponse wraps a user's items.
type ItemsResponse struct {
	Items []*model.TodoItem `json:"items"`
}

// UploadURLResponse carries a pre-signed upload URL.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// EmptyResponse is the `{}` body of successful update and delete calls.
type EmptyResponse struct{}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}
