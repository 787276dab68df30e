// Package repository provides the todo item store.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/todoapp/todo-backend/internal/model"
)

// Common errors for store operations.
var (
	ErrMissingTodoID = errors.New("todoId is missing")
	ErrTodoNotFound  = errors.New("todo item not found")
)

// TodoStore persists todo items keyed by (userId, todoId), with a secondary
// lookup on todoId alone.
//
// Writes are unconditional: Create overwrites, Update is last-writer-wins and
// Delete of a missing key succeeds.
type TodoStore interface {
	// ListByUser returns every item owned by userID in store order.
	ListByUser(ctx context.Context, userID string) ([]*model.TodoItem, error)

	// FindByID looks an item up by todoID alone.
	// Returns ErrMissingTodoID for an empty id and ErrTodoNotFound when absent.
	FindByID(ctx context.Context, todoID string) (*model.TodoItem, error)

	// Create stores a new item for userID and returns it.
	Create(ctx context.Context, userID string, req model.CreateTodoRequest) (*model.TodoItem, error)

	// Update replaces name, dueDate and done on the item's key.
	Update(ctx context.Context, item *model.TodoItem, req model.UpdateTodoRequest) error

	// Delete removes the item's key.
	Delete(ctx context.Context, item *model.TodoItem) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}

// newTodoID returns a random v4 UUID.
func newTodoID() string {
	return uuid.NewString()
}

// nowMillis renders t as Unix milliseconds, the createdAt format.
func nowMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
