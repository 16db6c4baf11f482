// Package jsonstore provides a JSON file-based implementation of TaskStore.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/okatsu/habitask/internal/domain"
)

// storeData represents the JSON file structure: the two logical collections.
type storeData struct {
	Items     []domain.Task `json:"items"`
	Completed []domain.Task `json:"completed"`
}

// Store implements domain.TaskStore using a single JSON file. Every
// operation reads, modifies, and rewrites the full collections under a file
// lock, so overlapping call sites never lose updates.
type Store struct {
	path     string
	lockPath string
}

// New creates a new Store for the given file path.
// The file does not need to exist; it will be created on first write.
func New(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// LoadTasks returns all tasks, active then completed. Corrupt data loads as
// an empty list rather than failing.
func (s *Store) LoadTasks() ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.withLock(func(data *storeData) error {
		tasks = append(tasks, data.Items...)
		tasks = append(tasks, data.Completed...)
		return nil
	})
	return tasks, err
}

// AddTask persists a new active task. Returns false without side effects if
// a task with the same id already exists in either collection.
func (s *Store) AddTask(task domain.Task) (bool, error) {
	added := false
	err := s.withLockWrite(func(data *storeData) error {
		if indexByID(data.Items, task.ID) >= 0 || indexByID(data.Completed, task.ID) >= 0 {
			return errNoWrite
		}
		data.Items = append(data.Items, task)
		added = true
		return nil
	})
	return added, err
}

// TaskExists looks up a task by natural key in either collection.
func (s *Store) TaskExists(habitID, date string) (*domain.Task, error) {
	var found *domain.Task
	err := s.withLock(func(data *storeData) error {
		for _, list := range [][]domain.Task{data.Items, data.Completed} {
			for i := range list {
				if list[i].MatchesOccurrence(habitID, date) {
					t := list[i]
					found = &t
					return nil
				}
			}
		}
		return nil
	})
	return found, err
}

// TaskExistsByID reports whether a task with the given id exists.
func (s *Store) TaskExistsByID(id string) (bool, error) {
	exists := false
	err := s.withLock(func(data *storeData) error {
		exists = indexByID(data.Items, id) >= 0 || indexByID(data.Completed, id) >= 0
		return nil
	})
	return exists, err
}

// UpdateTask merges the patch into an active task.
func (s *Store) UpdateTask(id string, patch domain.TaskPatch) (bool, error) {
	updated := false
	err := s.withLockWrite(func(data *storeData) error {
		idx := indexByID(data.Items, id)
		if idx < 0 {
			return errNoWrite
		}
		data.Items[idx].Apply(patch)
		updated = true
		return nil
	})
	return updated, err
}

// RemoveTask deletes a task from whichever collection holds it.
func (s *Store) RemoveTask(id string) (bool, error) {
	removed := false
	err := s.withLockWrite(func(data *storeData) error {
		if idx := indexByID(data.Items, id); idx >= 0 {
			data.Items = append(data.Items[:idx], data.Items[idx+1:]...)
			removed = true
		}
		if idx := indexByID(data.Completed, id); idx >= 0 {
			data.Completed = append(data.Completed[:idx], data.Completed[idx+1:]...)
			removed = true
		}
		if !removed {
			return errNoWrite
		}
		return nil
	})
	return removed, err
}

// CompleteTask atomically moves a task from the active collection to the
// completed collection with metrics attached.
func (s *Store) CompleteTask(id string, metrics domain.TaskMetrics) (bool, error) {
	completed := false
	err := s.withLockWrite(func(data *storeData) error {
		idx := indexByID(data.Items, id)
		if idx < 0 {
			return errNoWrite
		}
		task := data.Items[idx]
		task.Completed = true
		m := metrics
		task.Metrics = &m
		data.Items = append(data.Items[:idx], data.Items[idx+1:]...)
		data.Completed = append(data.Completed, task)
		completed = true
		return nil
	})
	return completed, err
}

// ReplaceAll overwrites both collections.
func (s *Store) ReplaceAll(items, completed []domain.Task) error {
	return s.withLockWrite(func(data *storeData) error {
		data.Items = append([]domain.Task(nil), items...)
		data.Completed = append([]domain.Task(nil), completed...)
		return nil
	})
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return nil // Already exists
	}

	return s.write(&storeData{})
}

// errNoWrite signals that a mutation found nothing to change; the file is
// left untouched.
var errNoWrite = fmt.Errorf("no write needed")

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data := s.read()
	return fn(data)
}

// withLockWrite executes fn with an exclusive (write) lock and writes the
// result unless fn reports there is nothing to write.
func (s *Store) withLockWrite(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data := s.read()
	if err := fn(data); err != nil {
		if err == errNoWrite {
			return nil
		}
		return err
	}

	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

// read loads the file. A missing or corrupt file yields empty collections:
// the engine treats unreadable data as an empty store and converges from
// there rather than failing every operation.
func (s *Store) read() *storeData {
	var data storeData
	content, err := os.ReadFile(s.path)
	if err != nil {
		return &data
	}
	if err := json.Unmarshal(content, &data); err != nil {
		return &storeData{}
	}
	return &data
}

func (s *Store) write(data *storeData) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func indexByID(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Ensure Store implements TaskStore.
var _ domain.TaskStore = (*Store)(nil)
var _ domain.StoreInitializer = (*Store)(nil)
