package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todoapp/todo-backend/internal/metrics"
	"github.com/todoapp/todo-backend/internal/model"
	"github.com/todoapp/todo-backend/internal/repository"
)

func strPtr(s string) *string { return &s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, opts ...Option) (*TodoService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewTodoService(store, discardLogger(), opts...), store
}

// mapCache is a ListCache backed by a map. Fills carrying an old
// generation are dropped, like the Redis implementation.
type mapCache struct {
	mu          sync.Mutex
	lists       map[string][]*model.TodoItem
	gens        map[string]int64
	invalidated []string
	genReads    int
}

func newMapCache() *mapCache {
	return &mapCache{
		lists: make(map[string][]*model.TodoItem),
		gens:  make(map[string]int64),
	}
}

func (c *mapCache) TodoListGeneration(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genReads++
	return c.gens[userID], nil
}

func (c *mapCache) GetTodoList(_ context.Context, userID string) ([]*model.TodoItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.lists[userID]
	if !ok {
		return nil, errors.New("miss")
	}
	return items, nil
}

func (c *mapCache) SetTodoList(_ context.Context, userID string, gen int64, items []*model.TodoItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return errors.New("stale generation")
	}
	c.lists[userID] = items
	return nil
}

func (c *mapCache) InvalidateTodoList(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	delete(c.lists, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func (c *mapCache) generationReads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.genReads
}

// gatedStore reads its first ListByUser snapshot, then holds the result
// until release is closed or the call's context ends.
type gatedStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: repository.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) ListByUser(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	first := false
	g.once.Do(func() { first = true })
	items, err := g.MemoryStore.ListByUser(ctx, userID)
	if first {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, err
}

type fixedLocator struct{}

func (fixedLocator) AttachmentURL(todoID string) string {
	return "https://bucket.s3.amazonaws.com/" + todoID
}

func TestTodoService_CreateThenList_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "Buy milk", DueDate: strPtr("2024-01-01")})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, created.TodoID, got.TodoID)
	assert.Equal(t, "Buy milk", got.Name)
	assert.Equal(t, "2024-01-01", *got.DueDate)
	assert.Equal(t, "u1", got.UserID)
	assert.False(t, got.Done)
}

func TestTodoService_Create_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		item, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "n"})
		require.NoError(t, err)
		assert.False(t, item.Done)
		assert.NotEmpty(t, item.TodoID)
		assert.NotEmpty(t, item.CreatedAt)
		assert.False(t, seen[item.TodoID], "todoId reused")
		seen[item.TodoID] = true
	}
}

func TestTodoService_Create_RequiresName(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Create(context.Background(), "u1", model.CreateTodoRequest{})
	assert.ErrorIs(t, err, ErrMissingName)

	items, _ := store.ListByUser(context.Background(), "u1")
	assert.Empty(t, items)
}

func TestTodoService_ListIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "mine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", model.CreateTodoRequest{Name: "theirs"})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "mine", items[0].Name)

	empty, err := svc.ListForUser(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTodoService_UpdateForUser_ReplacesMutableFields(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "old", DueDate: strPtr("2024-01-01")})
	require.NoError(t, err)

	err = svc.UpdateForUser(ctx, "u1", created.TodoID, model.UpdateTodoRequest{Name: "X", DueDate: strPtr("Y"), Done: true})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, created.TodoID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Name)
	assert.Equal(t, "Y", *got.DueDate)
	assert.True(t, got.Done)
	assert.Equal(t, created.TodoID, got.TodoID)
	assert.Equal(t, created.UserID, got.UserID)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
}

func TestTodoService_UpdateForUser_RequiresName(t *testing.T) {
	recorder := metrics.NewInMemory()
	svc, store := newTestService(t, WithMetrics(recorder))
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "keep me"})
	require.NoError(t, err)

	err = svc.UpdateForUser(ctx, "u1", created.TodoID, model.UpdateTodoRequest{Done: true})
	assert.ErrorIs(t, err, ErrMissingName)

	got, err := store.FindByID(ctx, created.TodoID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Name)
	assert.False(t, got.Done)
	assert.EqualValues(t, 0, recorder.Snapshot().TodosUpdated)
}

func TestTodoService_Ownership(t *testing.T) {
	recorder := metrics.NewInMemory()
	svc, store := newTestService(t, WithMetrics(recorder))
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "mine"})
	require.NoError(t, err)

	err = svc.UpdateForUser(ctx, "u2", created.TodoID, model.UpdateTodoRequest{Name: "hijacked", Done: true})
	assert.ErrorIs(t, err, ErrNotOwnerUpdate)
	assert.EqualError(t, err, "You can only update items you own")

	err = svc.DeleteForUser(ctx, "u2", created.TodoID)
	assert.ErrorIs(t, err, ErrNotOwnerDelete)
	assert.EqualError(t, err, "You can only delete items you own")

	got, err := store.FindByID(ctx, created.TodoID)
	require.NoError(t, err, "item must survive a foreign delete")
	assert.Equal(t, "mine", got.Name)
	assert.False(t, got.Done)

	snap := recorder.Snapshot()
	assert.EqualValues(t, 1, snap.UpdateOwnershipDenied)
	assert.EqualValues(t, 1, snap.DeleteOwnershipDenied)
	assert.EqualValues(t, 0, snap.TodosUpdated)
	assert.EqualValues(t, 0, snap.TodosDeleted)
}

func TestTodoService_DeleteForUser_RemovesExactlyOne(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "target"})
	require.NoError(t, err)
	sibling, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "sibling"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", model.CreateTodoRequest{Name: "other user"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteForUser(ctx, "u1", target.TodoID))

	items, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sibling.TodoID, items[0].TodoID)

	others, err := svc.ListForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestTodoService_LookupErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := model.UpdateTodoRequest{Name: "n"}
	assert.ErrorIs(t, svc.UpdateForUser(ctx, "u1", "", req), ErrMissingTodoID)
	assert.ErrorIs(t, svc.DeleteForUser(ctx, "u1", ""), ErrMissingTodoID)

	assert.ErrorIs(t, svc.UpdateForUser(ctx, "u1", "missing", req), ErrTodoNotFound)
	assert.ErrorIs(t, svc.DeleteForUser(ctx, "u1", "missing"), ErrTodoNotFound)
}

func TestTodoService_ListCache(t *testing.T) {
	recorder := metrics.NewInMemory()
	cache := newMapCache()
	svc, _ := newTestService(t, WithListCache(cache), WithMetrics(recorder))
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "first"})
	require.NoError(t, err)

	_, err = svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.ListForUser(ctx, "u1")
	require.NoError(t, err)

	snap := recorder.Snapshot()
	assert.EqualValues(t, 1, snap.ListCacheMisses)
	assert.EqualValues(t, 1, snap.ListCacheHits)

	// A write by the owner drops the cached list.
	require.NoError(t, svc.UpdateForUser(ctx, "u1", created.TodoID, model.UpdateTodoRequest{Name: "renamed"}))
	assert.NotContains(t, cache.lists, "u1")

	items, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "renamed", items[0].Name)

	require.NoError(t, svc.DeleteForUser(ctx, "u1", created.TodoID))
	items, err = svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, []string{"u1", "u1", "u1"}, cache.invalidated)
}

func TestTodoService_ListFillsAttachmentURL(t *testing.T) {
	svc, _ := newTestService(t, WithAttachments(fixedLocator{}))
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "with picture"})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].AttachmentURL)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/"+created.TodoID, *items[0].AttachmentURL)
}

// failingStore fails every call with err.
type failingStore struct {
	repository.MemoryStore
	err error
}

func (f *failingStore) ListByUser(context.Context, string) ([]*model.TodoItem, error) {
	return nil, f.err
}

func (f *failingStore) Create(context.Context, string, model.CreateTodoRequest) (*model.TodoItem, error) {
	return nil, f.err
}

func TestTodoService_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("store unavailable")
	svc := NewTodoService(&failingStore{err: boom}, discardLogger())
	ctx := context.Background()

	_, err := svc.ListForUser(ctx, "u1")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Create(ctx, "u1", model.CreateTodoRequest{Name: "n"})
	assert.ErrorIs(t, err, boom)
}

func TestTodoService_ListCache_WriteDuringLoad(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, svc *TodoService, existing *model.TodoItem)
		want  []string
	}{
		{
			name: "create",
			write: func(t *testing.T, svc *TodoService, _ *model.TodoItem) {
				_, err := svc.Create(context.Background(), "u1", model.CreateTodoRequest{Name: "Buy milk"})
				require.NoError(t, err)
			},
			want: []string{"Buy milk", "existing"},
		},
		{
			name: "delete",
			write: func(t *testing.T, svc *TodoService, existing *model.TodoItem) {
				require.NoError(t, svc.DeleteForUser(context.Background(), "u1", existing.TodoID))
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newGatedStore()
			svc := NewTodoService(store, discardLogger(), WithListCache(newMapCache()))
			ctx := context.Background()

			existing, err := store.Create(ctx, "u1", model.CreateTodoRequest{Name: "existing"})
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				_, err := svc.ListForUser(ctx, "u1")
				done <- err
			}()

			<-store.entered
			tt.write(t, svc, existing)
			close(store.release)
			require.NoError(t, <-done)

			items, err := svc.ListForUser(ctx, "u1")
			require.NoError(t, err)

			names := make([]string, 0, len(items))
			for _, item := range items {
				names = append(names, item.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestTodoService_ListCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store := newGatedStore()
	cache := newMapCache()
	svc := NewTodoService(store, discardLogger(), WithListCache(cache))

	_, err := store.Create(context.Background(), "u1", model.CreateTodoRequest{Name: "shared"})
	require.NoError(t, err)

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.ListForUser(firstCtx, "u1")
		first <- err
	}()
	<-store.entered

	type result struct {
		items []*model.TodoItem
		err   error
	}
	second := make(chan result, 1)
	go func() {
		items, err := svc.ListForUser(context.Background(), "u1")
		second <- result{items, err}
	}()

	require.Eventually(t, func() bool { return cache.generationReads() == 2 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(store.release)
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.items, 1)
	assert.Equal(t, "shared", res.items[0].Name)
}
