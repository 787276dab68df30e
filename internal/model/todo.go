// Package model defines domain entities for the application.
package model

import "errors"

// Validation errors for caller-supplied fields.
var (
	ErrMissingName = errors.New("name is required")
	ErrMissingDone = errors.New("done is required")
)

// TodoItem is a single task owned by one user.
// (UserID, TodoID) is the primary key; TodoID is also unique on its own.
type TodoItem struct {
	TodoID        string  `json:"todoId" dynamodbav:"todoId"`
	UserID        string  `json:"userId" dynamodbav:"userId"`
	Name          string  `json:"name" dynamodbav:"name"`
	CreatedAt     string  `json:"createdAt" dynamodbav:"createdAt"`
	Done          bool    `json:"done" dynamodbav:"done"`
	DueDate       *string `json:"dueDate,omitempty" dynamodbav:"dueDate,omitempty"`
	AttachmentURL *string `json:"attachmentUrl,omitempty" dynamodbav:"-"`
}

// IsOwnedBy reports whether userID owns the item.
func (t *TodoItem) IsOwnedBy(userID string) bool {
	return t.UserID == userID
}

// CreateTodoRequest holds the caller-supplied fields of a new item.
type CreateTodoRequest struct {
	Name    string
	DueDate *string
}

// UpdateTodoRequest replaces every mutable field of an item.
type UpdateTodoRequest struct {
	Name    string
	DueDate *string
	Done    bool
}

// NewTodoItem builds a fresh, not-done item. Only Name and DueDate are taken
// from the request.
func NewTodoItem(todoID, userID, createdAt string, req CreateTodoRequest) *TodoItem {
	return &TodoItem{
		TodoID:    todoID,
		UserID:    userID,
		Name:      req.Name,
		CreatedAt: createdAt,
		Done:      false,
		DueDate:   req.DueDate,
	}
}

// Apply overwrites the mutable fields with the values in req.
// TodoID, UserID and CreatedAt are never touched.
func (t *TodoItem) Apply(req UpdateTodoRequest) {
	t.Name = req.Name
	t.DueDate = req.DueDate
	t.Done = req.Done
}
