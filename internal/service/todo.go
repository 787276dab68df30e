// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/todoapp/todo-backend/internal/metrics"
	"github.com/todoapp/todo-backend/internal/model"
	"github.com/todoapp/todo-backend/internal/repository"
)

// Service errors.
var (
	ErrMissingName    = model.ErrMissingName
	ErrNotOwnerUpdate = errors.New("You can only update items you own")
	ErrNotOwnerDelete = errors.New("You can only delete items you own")

	ErrMissingTodoID = repository.ErrMissingTodoID
	ErrTodoNotFound  = repository.ErrTodoNotFound
)

// ListCache caches a user's item list between writes.
// GetTodoList must return an error on a miss. SetTodoList must not store
// anything if InvalidateTodoList ran after gen was read.
type ListCache interface {
	TodoListGeneration(ctx context.Context, userID string) (int64, error)
	GetTodoList(ctx context.Context, userID string) ([]*model.TodoItem, error)
	SetTodoList(ctx context.Context, userID string, gen int64, items []*model.TodoItem) error
	InvalidateTodoList(ctx context.Context, userID string) error
}

// AttachmentLocator maps a todo ID to its attachment's public URL.
type AttachmentLocator interface {
	AttachmentURL(todoID string) string
}

// TodoService handles todo business logic. The only rule it enforces is
// ownership: an item is mutated or deleted only by its owner.
type TodoService struct {
	store       repository.TodoStore
	cache       ListCache
	attachments AttachmentLocator
	metrics     metrics.Recorder
	logger      *slog.Logger
	sf          singleflight.Group
}

// Option configures a TodoService.
type Option func(*TodoService)

// WithListCache enables caching of list results.
func WithListCache(c ListCache) Option {
	return func(s *TodoService) { s.cache = c }
}

// WithAttachments fills attachmentUrl on listed items.
func WithAttachments(a AttachmentLocator) Option {
	return func(s *TodoService) { s.attachments = a }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *TodoService) { s.metrics = r }
}

// NewTodoService creates a new TodoService over store.
func NewTodoService(store repository.TodoStore, logger *slog.Logger, opts ...Option) *TodoService {
	s := &TodoService{
		store:   store,
		metrics: metrics.NewNoop(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListForUser returns every item owned by userID.
func (s *TodoService) ListForUser(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	if s.cache == nil {
		return s.listFromStore(ctx, userID)
	}

	gen, err := s.cache.TodoListGeneration(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "list cache unavailable", "error", err)
		return s.listFromStore(ctx, userID)
	}

	// Loads are shared per generation so a list started after a write never
	// joins a load that began before it.
	key := userID + "@" + strconv.FormatInt(gen, 10)
	ch := s.sf.DoChan(key, func() (any, error) {
		return s.loadList(context.WithoutCancel(ctx), userID, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*model.TodoItem), nil
	}
}

func (s *TodoService) loadList(ctx context.Context, userID string, gen int64) ([]*model.TodoItem, error) {
	if items, err := s.cache.GetTodoList(ctx, userID); err == nil {
		s.metrics.IncListCacheHit()
		return items, nil
	}
	s.metrics.IncListCacheMiss()

	items, err := s.listFromStore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetTodoList(ctx, userID, gen, items); err != nil {
		s.logger.DebugContext(ctx, "list not cached", "error", err)
	}
	return items, nil
}

func (s *TodoService) listFromStore(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.attachments != nil {
		for _, item := range items {
			u := s.attachments.AttachmentURL(item.TodoID)
			item.AttachmentURL = &u
		}
	}
	return items, nil
}

// Create stores a new item owned by userID.
func (s *TodoService) Create(ctx context.Context, userID string, req model.CreateTodoRequest) (*model.TodoItem, error) {
	if req.Name == "" {
		return nil, ErrMissingName
	}

	item, err := s.store.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.metrics.IncTodoCreated()
	s.invalidate(ctx, userID)

	return item, nil
}

// UpdateForUser replaces the mutable fields of todoID if userID owns it.
func (s *TodoService) UpdateForUser(ctx context.Context, userID, todoID string, req model.UpdateTodoRequest) error {
	if req.Name == "" {
		return ErrMissingName
	}

	item, err := s.store.FindByID(ctx, todoID)
	if err != nil {
		return err
	}

	if !item.IsOwnedBy(userID) {
		s.metrics.IncOwnershipDenied("update")
		return ErrNotOwnerUpdate
	}

	if err := s.store.Update(ctx, item, req); err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}

	s.metrics.IncTodoUpdated()
	s.invalidate(ctx, item.UserID)

	return nil
}

// DeleteForUser removes todoID if userID owns it.
func (s *TodoService) DeleteForUser(ctx context.Context, userID, todoID string) error {
	item, err := s.store.FindByID(ctx, todoID)
	if err != nil {
		return err
	}

	if !item.IsOwnedBy(userID) {
		s.metrics.IncOwnershipDenied("delete")
		return ErrNotOwnerDelete
	}

	if err := s.store.Delete(ctx, item); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	s.metrics.IncTodoDeleted()
	s.invalidate(ctx, item.UserID)

	return nil
}

func (s *TodoService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTodoList(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "list cache invalidation failed", "error", err)
	}
}
