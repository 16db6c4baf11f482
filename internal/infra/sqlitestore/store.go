// Package sqlitestore provides a SQLite-backed implementation of TaskStore.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/okatsu/habitask/internal/domain"
)

// Store implements domain.TaskStore on a SQLite database. A unique index on
// (habit_id, day) backs the natural-key idempotency guarantee at the
// storage layer.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize is satisfied by Open creating the schema.
func (s *Store) Initialize() error {
	return s.ensureSchema()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0,
	duration INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	task_type TEXT NOT NULL,
	habit_id TEXT DEFAULT '',
	template_id TEXT DEFAULT '',
	day TEXT DEFAULT '',
	metric_type TEXT DEFAULT '',
	metrics TEXT DEFAULT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_natural_key
	ON tasks (habit_id, day) WHERE habit_id <> '' AND day <> '';`
	_, err := s.db.Exec(ddl)
	return err
}

const taskColumns = `id, name, description, completed, duration, created_at, task_type, habit_id, template_id, day, metric_type, metrics`

// LoadTasks returns all tasks. Rows with corrupt metrics load without them.
func (s *Store) LoadTasks() ([]domain.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AddTask inserts a new active task. Returns false if the id already exists.
func (s *Store) AddTask(task domain.Task) (bool, error) {
	exists, err := s.TaskExistsByID(task.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = s.db.Exec(
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		insertArgs(task)...,
	)
	if err != nil {
		return false, fmt.Errorf("insert task: %w", err)
	}
	return true, nil
}

// TaskExists looks up a task by natural key in either collection.
func (s *Store) TaskExists(habitID, date string) (*domain.Task, error) {
	if habitID == "" || date == "" {
		return nil, nil
	}
	row := s.db.QueryRow(
		`SELECT `+taskColumns+` FROM tasks WHERE habit_id = ? AND day = ? LIMIT 1;`,
		habitID, date,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TaskExistsByID reports whether a task with the given id exists.
func (s *Store) TaskExistsByID(id string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM tasks WHERE id = ?;`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateTask merges the patch into an active task.
func (s *Store) UpdateTask(id string, patch domain.TaskPatch) (bool, error) {
	row := s.db.QueryRow(
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND completed = 0;`, id,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	t.Apply(patch)
	rel := relationshipsOf(&t)
	res, err := s.db.Exec(
		`UPDATE tasks SET name = ?, description = ?, duration = ?, habit_id = ?, template_id = ?, day = ?, metric_type = ?, metrics = ? WHERE id = ?;`,
		t.Name, t.Description, t.Duration,
		rel.HabitID, rel.TemplateID, rel.Date, rel.MetricType,
		metricsJSON(t.Metrics), id,
	)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveTask deletes a task by id.
func (s *Store) RemoveTask(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CompleteTask marks an active task completed with metrics attached. The
// single UPDATE moves the row between the two logical collections atomically.
func (s *Store) CompleteTask(id string, metrics domain.TaskMetrics) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE tasks SET completed = 1, metrics = ? WHERE id = ? AND completed = 0;`,
		metricsJSON(&metrics), id,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ReplaceAll overwrites both collections in one transaction.
func (s *Store) ReplaceAll(items, completed []domain.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM tasks;`); err != nil {
		return err
	}
	for _, list := range [][]domain.Task{items, completed} {
		for _, t := range list {
			if _, err := tx.Exec(
				`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
				insertArgs(t)...,
			); err != nil {
				return fmt.Errorf("insert task %s: %w", t.ID, err)
			}
		}
	}
	return tx.Commit()
}

// scanner is the shared surface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var t domain.Task
	var completed int
	var habitID, templateID, day, metricType string
	var metrics sql.NullString

	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &completed, &t.Duration, &t.CreatedAt,
		&t.TaskType, &habitID, &templateID, &day, &metricType, &metrics,
	)
	if err != nil {
		return t, err
	}
	t.Completed = completed == 1
	if habitID != "" || templateID != "" || day != "" || metricType != "" {
		t.Relationships = &domain.Relationships{
			HabitID:    habitID,
			TemplateID: templateID,
			Date:       day,
			MetricType: metricType,
		}
	}
	if metrics.Valid && metrics.String != "" {
		var m domain.TaskMetrics
		if err := json.Unmarshal([]byte(metrics.String), &m); err == nil {
			t.Metrics = &m
		}
	}
	return t, nil
}

func insertArgs(t domain.Task) []any {
	rel := relationshipsOf(&t)
	completed := 0
	if t.Completed {
		completed = 1
	}
	return []any{
		t.ID, t.Name, t.Description, completed, t.Duration, t.CreatedAt,
		string(t.TaskType), rel.HabitID, rel.TemplateID, rel.Date, rel.MetricType,
		metricsJSON(t.Metrics),
	}
}

func relationshipsOf(t *domain.Task) domain.Relationships {
	if t.Relationships == nil {
		return domain.Relationships{}
	}
	return *t.Relationships
}

func metricsJSON(m *domain.TaskMetrics) any {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(data)
}

// Ensure Store implements TaskStore.
var _ domain.TaskStore = (*Store)(nil)
var _ domain.StoreInitializer = (*Store)(nil)
