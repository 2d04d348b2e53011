package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ellevenagent/project-dashboard/domain"
)

// "column" is a reserved word, hence the quoting throughout.
const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	"column"    TEXT NOT NULL DEFAULT 'backlog',
	tag         TEXT NOT NULL DEFAULT '',
	assignee    TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT 'medium',
	emoji       TEXT NOT NULL DEFAULT '',
	due_date    TEXT NOT NULL DEFAULT '',
	created_at  BIGINT NOT NULL,
	updated_at  BIGINT NOT NULL
)`

// PostgresStore persists tasks in a single relational table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, verifies connectivity and ensures the schema
// exists. Any failure is returned to the selector, which treats it as a
// signal to fall back to file storage.
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTasksTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Kind() string { return KindPostgres }

// Close releases the connection pool. Used on shutdown only.
func (s *PostgresStore) Close() error { return s.db.Close() }

const selectTasks = `
SELECT id, title, description, "column", tag, assignee, priority, emoji, due_date, created_at, updated_at
FROM tasks
ORDER BY id DESC`

// List returns all tasks, most recently created first.
func (s *PostgresStore) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, selectTasks)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Column, &t.Tag,
			&t.Assignee, &t.Priority, &t.Emoji, &t.DueDate,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Upsert inserts when the patch carries no positive id, otherwise applies
// only the present fields to the existing row. An update matching no row is
// not an error.
func (s *PostgresStore) Upsert(ctx context.Context, patch domain.TaskPatch) (domain.Task, bool, error) {
	if patch.IsUpdate() {
		t, err := s.update(ctx, patch)
		return t, false, err
	}
	t, err := s.insert(ctx, patch)
	return t, err == nil, err
}

const insertTask = `
INSERT INTO tasks (title, description, "column", tag, assignee, priority, emoji, due_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`

func (s *PostgresStore) insert(ctx context.Context, patch domain.TaskPatch) (domain.Task, error) {
	t := patch.NewTask(domain.NextTimestamp())
	err := s.db.QueryRowContext(ctx, insertTask,
		t.Title, t.Description, t.Column, t.Tag, t.Assignee,
		t.Priority, t.Emoji, t.DueDate, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) update(ctx context.Context, patch domain.TaskPatch) (domain.Task, error) {
	query, args := buildUpdate(patch, domain.NextTimestamp())
	var t domain.Task
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&t.ID, &t.Title, &t.Description, &t.Column, &t.Tag,
		&t.Assignee, &t.Priority, &t.Emoji, &t.DueDate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Missing row: reported as success, same as delete.
		return domain.Task{}, nil
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", patch.ID, err)
	}
	return t, nil
}

// buildUpdate assembles the SET clause from the fields present in the patch.
// updated_at is always stamped; the row id lands in the final placeholder.
func buildUpdate(patch domain.TaskPatch, now int64) (string, []any) {
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Column != nil {
		add(`"column"`, *patch.Column)
	}
	if patch.Tag != nil {
		add("tag", *patch.Tag)
	}
	if patch.Assignee != nil {
		add("assignee", *patch.Assignee)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Emoji != nil {
		add("emoji", *patch.Emoji)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	add("updated_at", now)
	args = append(args, patch.ID)

	query := "UPDATE tasks SET " + strings.Join(set, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		` RETURNING id, title, description, "column", tag, assignee, priority, emoji, due_date, created_at, updated_at`
	return query, args
}

// Delete removes the task if present. Deleting a missing id is success.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}
