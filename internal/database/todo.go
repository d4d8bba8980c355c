package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"main/internal/model"
)

// TodoPatch carries the fields of a partial update; nil fields are left
// untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// TodoStore persists todos. Every operation is scoped to the owning
// user id; rows owned by other users behave as absent.
type TodoStore interface {
	ListTodos(ctx context.Context, userID int64) ([]model.Todo, error)
	CreateTodo(ctx context.Context, userID int64, title string, description *string) (*model.Todo, error)
	FindTodo(ctx context.Context, id, userID int64) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id, userID int64, patch TodoPatch) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id, userID int64) (*model.Todo, error)
}

type todoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) TodoStore {
	return &todoStore{db: db}
}

const todoColumns = "id, title, description, completed, user_id, created_at, updated_at"

func scanTodo(row *sql.Row) (*model.Todo, error) {
	todo := &model.Todo{}
	var description sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(&todo.ID, &todo.Title, &description, &todo.Completed, &todo.UserID, &todo.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if description.Valid {
		todo.Description = &description.String
	}
	if updatedAt.Valid {
		todo.UpdatedAt = &updatedAt.Time
	}

	return todo, nil
}

func (s *todoStore) ListTodos(ctx context.Context, userID int64) ([]model.Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		todo := model.Todo{}
		var description sql.NullString
		var updatedAt sql.NullTime

		if err := rows.Scan(&todo.ID, &todo.Title, &description, &todo.Completed, &todo.UserID, &todo.CreatedAt, &updatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			todo.Description = &description.String
		}
		if updatedAt.Valid {
			todo.UpdatedAt = &updatedAt.Time
		}
		todos = append(todos, todo)
	}

	return todos, rows.Err()
}

func (s *todoStore) CreateTodo(ctx context.Context, userID int64, title string, description *string) (*model.Todo, error) {
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO todos (title, description, user_id, created_at) VALUES ($1, $2, $3, $4) RETURNING "+todoColumns,
		title, description, userID, time.Now())
	return scanTodo(row)
}

func (s *todoStore) FindTodo(ctx context.Context, id, userID int64) (*model.Todo, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE id = $1 AND user_id = $2", id, userID)
	return scanTodo(row)
}

func (s *todoStore) UpdateTodo(ctx context.Context, id, userID int64, patch TodoPatch) (*model.Todo, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET title = COALESCE($3, title),
		     description = COALESCE($4, description),
		     completed = COALESCE($5, completed),
		     updated_at = $6
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+todoColumns,
		id, userID, patch.Title, patch.Description, patch.Completed, time.Now())
	return scanTodo(row)
}

func (s *todoStore) DeleteTodo(ctx context.Context, id, userID int64) (*model.Todo, error) {
	row := s.db.QueryRowContext(ctx,
		"DELETE FROM todos WHERE id = $1 AND user_id = $2 RETURNING "+todoColumns,
		id, userID)
	return scanTodo(row)
}
