// Package sqlite implements the yakstack ordered store on an embedded
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
	"yakstack/store"
)

// Store owns the durable representation of stacks, tasks and reminders
// and enforces their ordering and referential invariants.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the default database location, a fixed name
// inside the OS temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "yakstack.db")
}

// Open opens (and on first run initializes) the store at path.
// Every pooled connection carries foreign_keys and a bounded
// busy_timeout, so transient lock contention from a concurrently
// firing reminder worker blocks briefly instead of failing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("unable to open yakstack database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// dsn builds a file: URI with the pragmas applied to every connection.
func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	u := url.URL{Scheme: "file", Opaque: path}
	q := url.Values{}
	q.Set("mode", "rwc")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema performs one-time initialization when the app_state
// probe finds no usable row: create tables and indexes, insert the
// default stack and the initial current-stack pointer, all in one
// transaction.
func (s *Store) ensureSchema() error {
	var stackID int64
	err := s.db.QueryRow("SELECT stack_id FROM app_state").Scan(&stackID)
	if err == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stacks(
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			UNIQUE(name)
		)`,
		`CREATE TABLE IF NOT EXISTS app_state(
			stack_id INTEGER NOT NULL,
			FOREIGN KEY(stack_id) REFERENCES stacks(id)
		)`,
		`CREATE TABLE IF NOT EXISTS tasks(
			id INTEGER PRIMARY KEY,
			task TEXT NOT NULL,
			task_order INTEGER NOT NULL,
			stack_id INTEGER NOT NULL,
			FOREIGN KEY(stack_id) REFERENCES stacks(id)
		)`,
		`CREATE TABLE IF NOT EXISTS reminders(
			id TEXT PRIMARY KEY,
			delay INTEGER NOT NULL,
			task_id INTEGER NOT NULL,
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS tasks_ix ON tasks(stack_id, task_order, task)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("INSERT INTO stacks(id, name) VALUES (?, ?)",
		store.DefaultStackID, store.DefaultStackName); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO app_state(stack_id) VALUES (?)",
		store.DefaultStackID); err != nil {
		return err
	}
	return tx.Commit()
}

// CurrentStackID returns the stack pointed to by the app_state
// singleton. It is re-read on every call, never cached.
func (s *Store) CurrentStackID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT stack_id FROM app_state").Scan(&id)
	return id, err
}

// CurrentStackName returns the name of the current stack.
func (s *Store) CurrentStackName(ctx context.Context) (string, error) {
	id, err := s.CurrentStackID(ctx)
	if err != nil {
		return "", err
	}
	var name string
	err = s.db.QueryRowContext(ctx, "SELECT name FROM stacks WHERE id = ?", id).Scan(&name)
	return name, err
}

// StackID resolves a stack name to its identifier.
func (s *Store) StackID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM stacks WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, &store.NoSuchStackError{Name: name}
	}
	return id, err
}

// NewStack creates a new stack with a fresh identifier.
func (s *Store) NewStack(ctx context.Context, name string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM stacks WHERE name = ?", name).Scan(&one)
	if err == nil {
		return &store.StackExistsError{Name: name}
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = s.db.ExecContext(ctx, "INSERT INTO stacks(name) VALUES (?)", name)
	return err
}

// SwitchTo overwrites the current-stack pointer.
func (s *Store) SwitchTo(ctx context.Context, name string) error {
	id, err := s.StackID(ctx, name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "UPDATE app_state SET stack_id = ?", id)
	return err
}

// DropStack deletes a stack and every task in it as one atomic unit.
// The default stack and the current stack are protected.
func (s *Store) DropStack(ctx context.Context, name string) error {
	currentID, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	id, err := s.StackID(ctx, name)
	if err != nil {
		return err
	}
	if id == store.DefaultStackID {
		return &store.DefaultStackError{}
	}
	if id == currentID {
		return &store.CurrentStackError{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE stack_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM stacks WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// Stacks returns all stacks ordered by identifier.
func (s *Store) Stacks(ctx context.Context) ([]store.Stack, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM stacks ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stacks []store.Stack
	for rows.Next() {
		var st store.Stack
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		stacks = append(stacks, st)
	}
	return stacks, rows.Err()
}

// Push appends a task to the top of the current stack.
func (s *Store) Push(ctx context.Context, text string) error {
	id, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	return s.pushInto(ctx, id, text)
}

func (s *Store) pushInto(ctx context.Context, stackID int64, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(task, task_order, stack_id)
		 VALUES (?, (SELECT coalesce(max(task_order) + 1, 1) FROM tasks WHERE stack_id = ?), ?)`,
		text, stackID, stackID)
	return err
}

// PushBack appends a task to the bottom of the current stack.
func (s *Store) PushBack(ctx context.Context, text string) error {
	id, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	return s.pushBackInto(ctx, id, text)
}

func (s *Store) pushBackInto(ctx context.Context, stackID int64, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(task, task_order, stack_id)
		 VALUES (?, (SELECT coalesce(min(task_order) - 1, 1) FROM tasks WHERE stack_id = ?), ?)`,
		text, stackID, stackID)
	return err
}

// Pop removes and returns the top task of the current stack. The
// second return value is false when the stack is empty; the caller
// distinguishes an empty stack from a hard failure.
func (s *Store) Pop(ctx context.Context) (string, bool, error) {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return "", false, err
	}

	var taskID int64
	var text string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, task FROM tasks
		 WHERE stack_id = ?
		 AND task_order = (SELECT max(task_order) FROM tasks WHERE stack_id = ?)`,
		stackID, stackID).Scan(&taskID, &text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID); err != nil {
		return "", false, err
	}
	return text, true, nil
}

// PopTo moves the top task of the current stack to the named stack.
// Only the owning stack changes; the task keeps its order key, which
// is safe because keys are only ever compared within a stack. An
// empty current stack is a silent no-op.
func (s *Store) PopTo(ctx context.Context, destination string) error {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	destID, err := s.StackID(ctx, destination)
	if err != nil {
		return err
	}

	var taskID int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM tasks
		 WHERE stack_id = ?
		 AND task_order = (SELECT max(task_order) FROM tasks WHERE stack_id = ?)`,
		stackID, stackID).Scan(&taskID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "UPDATE tasks SET stack_id = ? WHERE id = ?", destID, taskID)
	return err
}

// InsertAfter inserts a task after the index-th task of the current
// stack, counting from 0 in ascending order. The boundary positions
// degenerate to PushBack and Push; otherwise every order key at or
// past the insertion point is shifted up by one and the new task takes
// the freed key, so keys within a stack never collide.
func (s *Store) InsertAfter(ctx context.Context, index int64, text string) error {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	count, err := s.taskCount(ctx, stackID)
	if err != nil {
		return err
	}
	if index < 0 || index >= count {
		return &store.NoSuchTaskError{Index: index}
	}
	if index == 0 {
		return s.pushBackInto(ctx, stackID, text)
	}
	if index == count-1 {
		return s.pushInto(ctx, stackID, text)
	}

	var order int64
	err = s.db.QueryRowContext(ctx,
		`SELECT task_order + 1 FROM (
			SELECT task_order, row_number() OVER (ORDER BY task_order) rn
			FROM tasks WHERE stack_id = ?
		 ) WHERE rn = ?`,
		stackID, index+1).Scan(&order)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET task_order = task_order + 1 WHERE task_order >= ? AND stack_id = ?",
		order, stackID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tasks(task, task_order, stack_id) VALUES (?, ?, ?)",
		text, order, stackID); err != nil {
		return err
	}
	return tx.Commit()
}

// Kill deletes the index-th task of the current stack and returns its
// text.
func (s *Store) Kill(ctx context.Context, index int64) (string, error) {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return "", err
	}
	taskID, err := s.taskIDAt(ctx, stackID, index)
	if err != nil {
		return "", err
	}
	var text string
	err = s.db.QueryRowContext(ctx,
		"SELECT task FROM tasks WHERE id = ?", taskID).Scan(&text)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
	return text, err
}

// Swap exchanges the order keys of the tasks at the two positions.
// Identifiers stay put, so identifier-keyed cross-references such as
// reminders keep pointing at the correct text after the swap.
func (s *Store) Swap(ctx context.Context, i, j int64) error {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	count, err := s.taskCount(ctx, stackID)
	if err != nil {
		return err
	}
	iBad := i < 0 || i >= count
	jBad := j < 0 || j >= count
	switch {
	case iBad && jBad:
		return &store.NoSuchTasksError{First: i, Second: j}
	case iBad:
		return &store.NoSuchTaskError{Index: i}
	case jBad:
		return &store.NoSuchTaskError{Index: j}
	}

	firstID, err := s.taskIDAt(ctx, stackID, i)
	if err != nil {
		return err
	}
	secondID, err := s.taskIDAt(ctx, stackID, j)
	if err != nil {
		return err
	}
	var firstOrder, secondOrder int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT task_order FROM tasks WHERE id = ?", firstID).Scan(&firstOrder); err != nil {
		return err
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT task_order FROM tasks WHERE id = ?", secondID).Scan(&secondOrder); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET task_order = ? WHERE id = ?", secondOrder, firstID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET task_order = ? WHERE id = ?", firstOrder, secondID); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear deletes every task in the current stack.
func (s *Store) Clear(ctx context.Context) error {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM tasks WHERE stack_id = ?", stackID)
	return err
}

// ClearAll deletes every task in every stack.
func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tasks")
	return err
}

// Tasks returns the texts of the current stack in ascending order.
func (s *Store) Tasks(ctx context.Context) ([]string, error) {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT task FROM tasks WHERE stack_id = ? ORDER BY task_order", stackID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		tasks = append(tasks, text)
	}
	return tasks, rows.Err()
}

// TaskIDAt maps a 0-based position in the current stack to a task
// identifier. The mapping is re-derived on every call by ranking
// tasks on their order key; it is never cached.
func (s *Store) TaskIDAt(ctx context.Context, index int64) (int64, error) {
	stackID, err := s.CurrentStackID(ctx)
	if err != nil {
		return 0, err
	}
	return s.taskIDAt(ctx, stackID, index)
}

func (s *Store) taskCount(ctx context.Context, stackID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM tasks WHERE stack_id = ?", stackID).Scan(&count)
	return count, err
}

func (s *Store) taskIDAt(ctx context.Context, stackID, index int64) (int64, error) {
	count, err := s.taskCount(ctx, stackID)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= count {
		return 0, &store.NoSuchTaskError{Index: index}
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM (
			SELECT id, row_number() OVER (ORDER BY task_order) rn
			FROM tasks WHERE stack_id = ?
		 ) WHERE rn = ?`,
		stackID, index+1).Scan(&id)
	return id, err
}
