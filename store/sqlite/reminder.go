package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"yakstack/store"
)

// ScheduleReminder records a reminder row and runs spawn inside one
// exclusive transaction, committing only after spawn returns
// successfully. The exclusive lock serializes all scheduling calls
// with respect to each other and to any other writer: the worker is
// launched before the commit, and without the lock a second scheduling
// call could interleave its own insert+spawn and each worker could
// observe a half-finished catalog. If spawn fails the transaction
// rolls back, so no reminder row is left behind without a worker.
func (s *Store) ScheduleReminder(ctx context.Context, rem store.Reminder, spawn func() error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		return err
	}
	rollback := func() { _, _ = conn.ExecContext(ctx, "ROLLBACK") }

	if _, err := conn.ExecContext(ctx,
		"INSERT INTO reminders(id, delay, task_id) VALUES (?, ?, ?)",
		rem.ID, rem.DelaySeconds, rem.TaskID); err != nil {
		rollback()
		return err
	}
	if spawn != nil {
		if err := spawn(); err != nil {
			rollback()
			return err
		}
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return fmt.Errorf("committing reminder: %w", err)
	}
	return nil
}

// Reminder looks up a reminder by its token. A missing row returns
// (nil, nil): the task may have been deleted before the worker got to
// look, which cascades the reminder away.
func (s *Store) Reminder(ctx context.Context, id string) (*store.Reminder, error) {
	rem := store.Reminder{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT delay, task_id FROM reminders WHERE id = ?", id).
		Scan(&rem.DelaySeconds, &rem.TaskID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

// ConsumeReminder atomically reads the task text for a reminder and
// deletes the reminder row. It returns ok=false without error when
// the reminder no longer exists, which is how task deletion cancels a
// pending firing.
func (s *Store) ConsumeReminder(ctx context.Context, id string) (string, bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return "", false, err
	}
	rollback := func() { _, _ = conn.ExecContext(ctx, "ROLLBACK") }

	var text string
	err = conn.QueryRowContext(ctx,
		`SELECT t.task FROM reminders r JOIN tasks t ON t.id = r.task_id
		 WHERE r.id = ?`, id).Scan(&text)
	if err == sql.ErrNoRows {
		rollback()
		return "", false, nil
	}
	if err != nil {
		rollback()
		return "", false, err
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id); err != nil {
		rollback()
		return "", false, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return "", false, err
	}
	return text, true, nil
}

// PendingReminders returns all recorded reminders, used by tests and
// diagnostics.
func (s *Store) PendingReminders(ctx context.Context) ([]store.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, delay, task_id FROM reminders")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rems []store.Reminder
	for rows.Next() {
		var rem store.Reminder
		if err := rows.Scan(&rem.ID, &rem.DelaySeconds, &rem.TaskID); err != nil {
			return nil, err
		}
		rems = append(rems, rem)
	}
	return rems, rows.Err()
}
