package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artyomia/marketingganttai/internal/model"
)

// SQLiteStore keeps records in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a path")
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return s, nil
}

// migrate creates the tasks table.
func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT,
			owner TEXT,
			start_date TEXT,
			end_date TEXT,
			progress INTEGER NOT NULL DEFAULT 0,
			status TEXT,
			assignees TEXT,
			description TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List returns all tasks ordered by creation time.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, category, owner, start_date, end_date, progress, status, assignees, description, created_at
		FROM tasks
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return Tasks(records), nil
}

// Create inserts a record with a fresh id.
func (s *SQLiteStore) Create(ctx context.Context, draft Draft) (model.Task, error) {
	r := NewRecord(draft)
	r.ID = uuid.NewString()
	created := s.now().UTC()
	r.CreatedAt = &created

	assignees, err := json.Marshal(r.Assignees)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to encode assignees: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, category, owner, start_date, end_date, progress, status, assignees, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Title, r.Category, r.Owner, r.StartDate.String(), r.EndDate.String(),
		r.Progress, r.Status, string(assignees), r.Description, created)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	return r.Task(), nil
}

// Update overwrites the editable columns of task.ID.
func (s *SQLiteStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	r := RecordOf(task)
	assignees, err := json.Marshal(r.Assignees)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to encode assignees: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, category = ?, start_date = ?, end_date = ?, progress = ?, status = ?, assignees = ?, description = ?
		WHERE id = ?
	`, r.Title, r.Category, r.StartDate.String(), r.EndDate.String(), r.Progress, r.Status,
		string(assignees), r.Description, r.ID)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, task.ID)
	}
	return r.Task(), nil
}

// Delete removes the record with id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                       Record
		category, owner, status sql.NullString
		startDate, endDate      sql.NullString
		assignees, description  sql.NullString
		created                 time.Time
	)
	if err := row.Scan(&r.ID, &r.Title, &category, &owner, &startDate, &endDate,
		&r.Progress, &status, &assignees, &description, &created); err != nil {
		return Record{}, fmt.Errorf("failed to scan task: %w", err)
	}

	r.Category = category.String
	r.Owner = owner.String
	r.Status = status.String
	r.Description = description.String
	r.CreatedAt = &created

	var err error
	if startDate.String != "" {
		if r.StartDate, err = model.ParseDate(startDate.String); err != nil {
			return Record{}, fmt.Errorf("task %s: %w", r.ID, err)
		}
	}
	if endDate.String != "" {
		if r.EndDate, err = model.ParseDate(endDate.String); err != nil {
			return Record{}, fmt.Errorf("task %s: %w", r.ID, err)
		}
	}
	if assignees.String != "" {
		if err := json.Unmarshal([]byte(assignees.String), &r.Assignees); err != nil {
			return Record{}, fmt.Errorf("task %s: invalid assignees: %w", r.ID, err)
		}
	}
	return r, nil
}
