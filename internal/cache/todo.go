package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/todoapp/todo-backend/internal/model"
)

const (
	todoListKeyPrefix = "todos:user:"
	todoGenKeyPrefix  = "todos:gen:"

	// generationTTL keeps idle counters from piling up. It must stay far
	// above the time a single list load can take.
	generationTTL = 24 * time.Hour
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleGeneration means the list was invalidated while it was loaded.
	ErrStaleGeneration = errors.New("list generation changed")
)

// setIfGeneration stores ARGV[2] at KEYS[2] only while KEYS[1] still holds
// generation ARGV[1]. A missing counter is generation 0.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

func todoListKey(userID string) string {
	return todoListKeyPrefix + userID
}

func todoGenKey(userID string) string {
	return todoGenKeyPrefix + userID
}

// GetTodoList returns the cached list for userID.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetTodoList(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	b, err := c.client.Get(ctx, todoListKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []*model.TodoItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cached list: %w", err)
	}
	return items, nil
}

// TodoListGeneration returns the invalidation counter for userID's list.
// Read it before loading the list from the store and hand it to SetTodoList.
func (c *Cache) TodoListGeneration(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, todoGenKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return gen, nil
}

// SetTodoList caches the list for userID if no invalidation happened since
// gen was read. Returns ErrStaleGeneration otherwise.
func (c *Cache) SetTodoList(ctx context.Context, userID string, gen int64, items []*model.TodoItem) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode list: %w", err)
	}

	keys := []string{todoGenKey(userID), todoListKey(userID)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), b, c.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to cache list: %w", err)
	}
	if stored == 0 {
		return ErrStaleGeneration
	}
	return nil
}

// InvalidateTodoList bumps the generation for userID and drops the cached list.
func (c *Cache) InvalidateTodoList(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, todoGenKey(userID))
		pipe.Expire(ctx, todoGenKey(userID), generationTTL)
		pipe.Del(ctx, todoListKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate list: %w", err)
	}
	return nil
}
