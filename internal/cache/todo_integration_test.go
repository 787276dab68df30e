//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/todoapp/todo-backend/internal/model"
	"github.com/todoapp/todo-backend/internal/testutil"
)

func newCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()

	redisURL := testutil.RequireEnv(t, "TEST_REDIS_URL")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, err := New(ctx, redisURL, time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return ctx, c
}

func TestIntegrationCache_TodoList(t *testing.T) {
	ctx, c := newCacheTestEnv(t)
	userID := testutil.UniqueID("user")

	if _, err := c.GetTodoList(ctx, userID); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	gen, err := c.TodoListGeneration(ctx, userID)
	if err != nil {
		t.Fatalf("TodoListGeneration failed: %v", err)
	}

	items := []*model.TodoItem{{TodoID: "t1", UserID: userID, Name: "Buy milk", CreatedAt: "1"}}
	if err := c.SetTodoList(ctx, userID, gen, items); err != nil {
		t.Fatalf("SetTodoList failed: %v", err)
	}

	got, err := c.GetTodoList(ctx, userID)
	if err != nil {
		t.Fatalf("GetTodoList failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Buy milk" {
		t.Errorf("unexpected cached list: %+v", got)
	}

	if err := c.InvalidateTodoList(ctx, userID); err != nil {
		t.Fatalf("InvalidateTodoList failed: %v", err)
	}
	if _, err := c.GetTodoList(ctx, userID); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after invalidation, got %v", err)
	}
}

func TestIntegrationCache_StaleFillIsDropped(t *testing.T) {
	ctx, c := newCacheTestEnv(t)
	userID := testutil.UniqueID("user")

	gen, err := c.TodoListGeneration(ctx, userID)
	if err != nil {
		t.Fatalf("TodoListGeneration failed: %v", err)
	}

	// A write lands between reading the generation and filling the cache.
	if err := c.InvalidateTodoList(ctx, userID); err != nil {
		t.Fatalf("InvalidateTodoList failed: %v", err)
	}

	stale := []*model.TodoItem{{TodoID: "gone", UserID: userID, Name: "deleted", CreatedAt: "1"}}
	if err := c.SetTodoList(ctx, userID, gen, stale); !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("expected ErrStaleGeneration, got %v", err)
	}
	if _, err := c.GetTodoList(ctx, userID); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("stale list must not be cached, got %v", err)
	}

	next, err := c.TodoListGeneration(ctx, userID)
	if err != nil {
		t.Fatalf("TodoListGeneration failed: %v", err)
	}
	if next != gen+1 {
		t.Errorf("generation = %d, want %d", next, gen+1)
	}
	if err := c.SetTodoList(ctx, userID, next, nil); err != nil {
		t.Errorf("fill with current generation failed: %v", err)
	}
}
