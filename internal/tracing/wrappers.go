package tracing

import (
	"context"

	"github.com/todoapp/todo-backend/internal/model"
	"github.com/todoapp/todo-backend/internal/repository"
)

// Store wraps a TodoStore with spans.
type Store struct {
	inner  repository.TodoStore
	tracer *Tracer
}

var _ repository.TodoStore = (*Store)(nil)

// WrapStore returns inner with every call traced.
func WrapStore(inner repository.TodoStore, tracer *Tracer) *Store {
	return &Store{inner: inner, tracer: tracer}
}

// ListByUser traces the inner ListByUser as span "ListByUser".
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	ctx, span := s.tracer.Start(ctx, "ListByUser")
	items, err := s.inner.ListByUser(ctx, userID)
	span.End(err)
	return items, err
}

// FindByID traces the inner FindByID as span "FindByID".
func (s *Store) FindByID(ctx context.Context, todoID string) (*model.TodoItem, error) {
	ctx, span := s.tracer.Start(ctx, "FindByID")
	item, err := s.inner.FindByID(ctx, todoID)
	span.End(err)
	return item, err
}

// Create traces the inner Create as span "Create".
func (s *Store) Create(ctx context.Context, userID string, req model.CreateTodoRequest) (*model.TodoItem, error) {
	ctx, span := s.tracer.Start(ctx, "Create")
	item, err := s.inner.Create(ctx, userID, req)
	span.End(err)
	return item, err
}

// Update traces the inner Update as span "Update".
func (s *Store) Update(ctx context.Context, item *model.TodoItem, req model.UpdateTodoRequest) error {
	ctx, span := s.tracer.Start(ctx, "Update")
	err := s.inner.Update(ctx, item, req)
	span.End(err)
	return err
}

// Delete traces the inner Delete as span "Delete".
func (s *Store) Delete(ctx context.Context, item *model.TodoItem) error {
	ctx, span := s.tracer.Start(ctx, "Delete")
	err := s.inner.Delete(ctx, item)
	span.End(err)
	return err
}

// Ping calls the inner store without a span.
func (s *Store) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// UploadIssuer issues upload URLs.
type UploadIssuer interface {
	IssueUploadURL(ctx context.Context, todoID string) (string, error)
}

// Issuer wraps an UploadIssuer with spans.
type Issuer struct {
	inner  UploadIssuer
	tracer *Tracer
}

// WrapIssuer returns inner with every call traced.
func WrapIssuer(inner UploadIssuer, tracer *Tracer) *Issuer {
	return &Issuer{inner: inner, tracer: tracer}
}

// IssueUploadURL traces the inner issuer as span "PresignPutObject".
func (i *Issuer) IssueUploadURL(ctx context.Context, todoID string) (string, error) {
	ctx, span := i.tracer.Start(ctx, "PresignPutObject")
	url, err := i.inner.IssueUploadURL(ctx, todoID)
	span.End(err)
	return url, err
}
