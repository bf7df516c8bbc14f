// Package reminder schedules delayed task reminders and runs the
// detached worker that fires them. The scheduler and the worker are
// two invocations of the same program that communicate only through
// the persisted store.
package reminder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"yakstack/internal/notification"
	"yakstack/internal/utils"
	"yakstack/store"
	"yakstack/store/sqlite"
)

// FireCommand is the internal subcommand the scheduler passes to the
// spawned worker process.
const FireCommand = "fire-reminder"

// EnvironmentError reports an operational failure: the executable
// path could not be resolved or the worker process could not be
// spawned. These are surfaced directly and never retried.
type EnvironmentError struct {
	Op  string
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// Scheduler records pending reminders and hands execution off to a
// detached re-invocation of the program.
type Scheduler struct {
	store      *sqlite.Store
	spawner    Spawner
	executable func() (string, error)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSpawner replaces the process spawner, used by tests to observe
// spawn calls and to force spawn failures.
func WithSpawner(sp Spawner) SchedulerOption {
	return func(s *Scheduler) {
		s.spawner = sp
	}
}

// WithExecutablePath replaces the executable lookup.
func WithExecutablePath(f func() (string, error)) SchedulerOption {
	return func(s *Scheduler) {
		s.executable = f
	}
}

// NewScheduler creates a Scheduler against the given store.
func NewScheduler(st *sqlite.Store, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:      st,
		spawner:    &execSpawner{},
		executable: os.Executable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule resolves the task at index in the current stack, parses the
// delay spec, and records the reminder while spawning the detached
// worker inside one exclusive store transaction. The transaction
// commits only after the spawn call returns, so a spawn failure never
// leaves an orphaned reminder row.
func (s *Scheduler) Schedule(ctx context.Context, index int64, delaySpec string) (*store.Reminder, error) {
	taskID, err := s.store.TaskIDAt(ctx, index)
	if err != nil {
		return nil, err
	}
	seconds, err := ParseDelay(delaySpec)
	if err != nil {
		return nil, err
	}
	exe, err := s.executable()
	if err != nil {
		return nil, &EnvironmentError{Op: "cannot locate own executable", Err: err}
	}

	rem := store.Reminder{
		ID:           uuid.New().String(),
		DelaySeconds: seconds,
		TaskID:       taskID,
	}
	err = s.store.ScheduleReminder(ctx, rem, func() error {
		args := []string{FireCommand, rem.ID, "--db", s.store.Path()}
		if err := s.spawner.Spawn(exe, args...); err != nil {
			return &EnvironmentError{Op: "cannot spawn reminder worker", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

// Worker is the detached process side: it waits out the delay, then
// atomically consumes the reminder and displays the task text.
type Worker struct {
	dbPath   string
	notifier notification.Manager
	sleep    func(time.Duration)
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithSleep replaces the delay sleep, used by tests.
func WithSleep(f func(time.Duration)) WorkerOption {
	return func(w *Worker) {
		w.sleep = f
	}
}

// NewWorker creates a Worker that will reopen the store at dbPath.
func NewWorker(dbPath string, notifier notification.Manager, opts ...WorkerOption) *Worker {
	w := &Worker{
		dbPath:   dbPath,
		notifier: notifier,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes one reminder firing. The store is closed before the
// sleep so no lock is held across the delay; cancellation is
// expressed only as the reminder row having disappeared by fire time,
// which makes the firing a silent no-op. A notification failure is
// returned to the caller and is fatal to the worker process.
func (w *Worker) Run(ctx context.Context, reminderID string) error {
	st, err := sqlite.Open(w.dbPath)
	if err != nil {
		return err
	}
	rem, err := st.Reminder(ctx, reminderID)
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if rem == nil {
		utils.GetLogger().Debug("reminder %s already gone, nothing to do", reminderID)
		return nil
	}

	w.sleep(time.Duration(rem.DelaySeconds) * time.Second)

	st, err = sqlite.Open(w.dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	text, ok, err := st.ConsumeReminder(ctx, reminderID)
	if err != nil {
		return err
	}
	if !ok {
		utils.GetLogger().Debug("reminder %s cancelled before firing", reminderID)
		return nil
	}

	return w.notifier.Send(notification.Notification{
		Title:     "yakstack",
		Message:   text,
		Timestamp: time.Now(),
	})
}
