// Package store defines the domain types and error taxonomy for the
// yakstack ordered task store. The SQLite implementation lives in
// store/sqlite.
package store

// DefaultStackID is the identifier of the protected default stack,
// created at first initialization and never deletable.
const DefaultStackID int64 = 1

// DefaultStackName is the name of the protected default stack.
const DefaultStackName = "default"

// Stack is a named, ordered collection of tasks.
type Stack struct {
	ID   int64
	Name string
}

// Task is a single text item with a position within exactly one stack.
// Order defines the task's relative position; only relative magnitude
// matters, and values are compared only within a stack.
type Task struct {
	ID      int64
	Text    string
	Order   int64
	StackID int64
}

// Reminder pairs a delay with a task. It is created by the scheduler
// and consumed exactly once, either by the detached worker on firing
// or transitively when its task is deleted.
type Reminder struct {
	ID           string
	DelaySeconds int64
	TaskID       int64
}
