package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/todoapp/todo-backend/internal/model"
)

type memoryKey struct {
	userID string
	todoID string
}

// MemoryStore is an in-process TodoStore for local development and tests.
// Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[memoryKey]model.TodoItem
	now   func() time.Time
}

var _ TodoStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[memoryKey]model.TodoItem),
		now:   time.Now,
	}
}

// ListByUser returns userID's items ordered by todoId, like a range-keyed partition.
func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]*model.TodoItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*model.TodoItem, 0)
	for k, v := range m.items {
		if k.userID == userID {
			item := v
			items = append(items, &item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TodoID < items[j].TodoID })
	return items, nil
}

// FindByID scans for todoID.
func (m *MemoryStore) FindByID(_ context.Context, todoID string) (*model.TodoItem, error) {
	if todoID == "" {
		return nil, ErrMissingTodoID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.items {
		if k.todoID == todoID {
			item := v
			return &item, nil
		}
	}
	return nil, ErrTodoNotFound
}

// Create stores a new item, overwriting any item with the same key.
func (m *MemoryStore) Create(_ context.Context, userID string, req model.CreateTodoRequest) (*model.TodoItem, error) {
	item := model.NewTodoItem(newTodoID(), userID, nowMillis(m.now()), req)

	m.mu.Lock()
	m.items[memoryKey{userID: item.UserID, todoID: item.TodoID}] = *item
	m.mu.Unlock()

	out := *item
	return &out, nil
}

// Update replaces the mutable fields under the item's key. A missing key is
// created with createdAt set to now, matching an unconditional store update.
func (m *MemoryStore) Update(_ context.Context, item *model.TodoItem, req model.UpdateTodoRequest) error {
	key := memoryKey{userID: item.UserID, todoID: item.TodoID}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[key]
	if !ok {
		stored = model.TodoItem{UserID: item.UserID, TodoID: item.TodoID, CreatedAt: nowMillis(m.now())}
	}
	stored.Apply(req)
	m.items[key] = stored
	return nil
}

// Delete removes the item's key if present.
func (m *MemoryStore) Delete(_ context.Context, item *model.TodoItem) error {
	m.mu.Lock()
	delete(m.items, memoryKey{userID: item.UserID, todoID: item.TodoID})
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
