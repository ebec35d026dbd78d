package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adeilh/rakh-todos/todo"
)

// TodoRepository implements todo.Repository on the todos table.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

const todoColumns = `id, creator_id, text, completed, completed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (todo.Todo, error) {
	var (
		t           todo.Todo
		completedAt sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.CreatorID, &t.Text, &t.Completed, &completedAt, &t.CreatedAt); err != nil {
		return todo.Todo{}, err
	}
	if completedAt.Valid {
		at := completedAt.Int64
		t.CompletedAt = &at
	}
	return t, nil
}

func (r *TodoRepository) Create(ctx context.Context, t todo.Todo) error {
	const query = `INSERT INTO todos (` + todoColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.CreatorID, t.Text, t.Completed, nullableMillis(t.CompletedAt), t.CreatedAt)
	return translateTodoError(err)
}

func (r *TodoRepository) ListByCreator(ctx context.Context, creatorID string) ([]todo.Todo, error) {
	const query = `SELECT ` + todoColumns + ` FROM todos WHERE creator_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		if pqCode(err) == codeInvalidTextRep {
			return []todo.Todo{}, nil
		}
		return nil, translateTodoError(err)
	}
	defer rows.Close()

	out := make([]todo.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, translateTodoError(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translateTodoError(err)
	}
	return out, nil
}

func (r *TodoRepository) Get(ctx context.Context, creatorID, id string) (todo.Todo, error) {
	const query = `SELECT ` + todoColumns + ` FROM todos WHERE id = $1 AND creator_id = $2`
	t, err := scanTodo(r.db.QueryRowContext(ctx, query, id, creatorID))
	if err != nil {
		return todo.Todo{}, translateTodoError(err)
	}
	return t, nil
}

func (r *TodoRepository) Update(ctx context.Context, t todo.Todo) error {
	const query = `UPDATE todos SET text = $3, completed = $4, completed_at = $5 WHERE id = $1 AND creator_id = $2`
	res, err := r.db.ExecContext(ctx, query, t.ID, t.CreatorID, t.Text, t.Completed, nullableMillis(t.CompletedAt))
	if err != nil {
		return translateTodoError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return todo.ErrNotFound
	}
	return nil
}

func (r *TodoRepository) Delete(ctx context.Context, creatorID, id string) (todo.Todo, error) {
	const query = `DELETE FROM todos WHERE id = $1 AND creator_id = $2 RETURNING ` + todoColumns
	t, err := scanTodo(r.db.QueryRowContext(ctx, query, id, creatorID))
	if err != nil {
		return todo.Todo{}, translateTodoError(err)
	}
	return t, nil
}

func nullableMillis(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func translateTodoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return todo.ErrNotFound
	}
	if pqCode(err) == codeInvalidTextRep {
		return todo.ErrNotFound
	}
	return fmt.Errorf("%w: %w", todo.ErrPersistence, err)
}
