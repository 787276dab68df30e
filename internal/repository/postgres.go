package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/todoapp/todo-backend/internal/model"
)

var todoColumns = []string{"todo_id", "user_id", "name", "created_at", "done", "due_date"}

// PostgresStore is a TodoStore backed by a PostgreSQL table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	psql   sq.StatementBuilderType
	logger *slog.Logger
	now    func() time.Time
}

var _ TodoStore = (*PostgresStore)(nil)

// NewPostgresPool creates a connection pool and verifies connectivity.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresStore creates a PostgresStore over table.
func NewPostgresStore(pool *pgxpool.Pool, table string, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		table:  pq.QuoteIdentifier(table),
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger.With("component", "postgres_store"),
		now:    time.Now,
	}
}

// ListByUser returns every row for userID.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	query, args, err := s.psql.Select(todoColumns...).
		From(s.table).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	items := make([]*model.TodoItem, 0)
	for rows.Next() {
		item, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	s.logger.DebugContext(ctx, "list query returned",
		slog.String("user_id", userID),
		slog.Int("count", len(items)),
	)

	return items, nil
}

// FindByID returns the newest row with todoID.
func (s *PostgresStore) FindByID(ctx context.Context, todoID string) (*model.TodoItem, error) {
	if todoID == "" {
		return nil, ErrMissingTodoID
	}

	query, args, err := s.psql.Select(todoColumns...).
		From(s.table).
		Where(sq.Eq{"todo_id": todoID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup query: %w", err)
	}

	item, err := scanTodo(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to get todo by id: %w", err)
	}

	return item, nil
}

// Create inserts a new row, overwriting any row with the same key.
func (s *PostgresStore) Create(ctx context.Context, userID string, req model.CreateTodoRequest) (*model.TodoItem, error) {
	item := model.NewTodoItem(newTodoID(), userID, nowMillis(s.now()), req)

	query, args, err := s.psql.Insert(s.table).
		Columns(todoColumns...).
		Values(item.TodoID, item.UserID, item.Name, item.CreatedAt, item.Done, item.DueDate).
		Suffix(`ON CONFLICT (user_id, todo_id) DO UPDATE SET
			name = EXCLUDED.name,
			created_at = EXCLUDED.created_at,
			done = EXCLUDED.done,
			due_date = EXCLUDED.due_date`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.logger.DebugContext(ctx, "todo stored",
		slog.String("user_id", item.UserID),
		slog.String("todo_id", item.TodoID),
	)

	return item, nil
}

// Update overwrites the mutable columns of the item's row.
func (s *PostgresStore) Update(ctx context.Context, item *model.TodoItem, req model.UpdateTodoRequest) error {
	query, args, err := s.psql.Update(s.table).
		Set("name", req.Name).
		Set("due_date", req.DueDate).
		Set("done", req.Done).
		Where(sq.Eq{"user_id": item.UserID, "todo_id": item.TodoID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "unable to update todo item",
			slog.String("todo_id", item.TodoID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("unable to update todo item: %w", err)
	}

	s.logger.DebugContext(ctx, "update succeeded",
		slog.String("todo_id", item.TodoID),
		slog.Int64("rows_affected", tag.RowsAffected()),
	)

	return nil
}

// Delete removes the item's row if present.
func (s *PostgresStore) Delete(ctx context.Context, item *model.TodoItem) error {
	query, args, err := s.psql.Delete(s.table).
		Where(sq.Eq{"user_id": item.UserID, "todo_id": item.TodoID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	s.logger.DebugContext(ctx, "todo deleted", slog.String("todo_id", item.TodoID))

	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsurePostgresSchema creates the todos table and its todo_id index if missing.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool, table string) error {
	quoted := pq.QuoteIdentifier(table)
	index := pq.QuoteIdentifier(table + "_todo_id_idx")

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			todo_id    TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			done       BOOLEAN NOT NULL DEFAULT FALSE,
			due_date   TEXT,
			PRIMARY KEY (user_id, todo_id)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (todo_id);
	`, quoted, index, quoted)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create todos schema: %w", err)
	}
	return nil
}

func scanTodo(row pgx.Row) (*model.TodoItem, error) {
	var item model.TodoItem
	err := row.Scan(
		&item.TodoID,
		&item.UserID,
		&item.Name,
		&item.CreatedAt,
		&item.Done,
		&item.DueDate,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
