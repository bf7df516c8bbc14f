package store

import (
	"errors"
	"fmt"
)

// NoSuchStackError reports a stack name that does not resolve.
type NoSuchStackError struct {
	Name string
}

func (e *NoSuchStackError) Error() string {
	return fmt.Sprintf("no such stack: '%s'", e.Name)
}

// StackExistsError reports an attempt to create a stack whose name is
// already taken.
type StackExistsError struct {
	Name string
}

func (e *StackExistsError) Error() string {
	return fmt.Sprintf("stack '%s' already exists", e.Name)
}

// DefaultStackError reports an attempt to delete the default stack.
type DefaultStackError struct{}

func (e *DefaultStackError) Error() string {
	return "can't delete default stack"
}

// CurrentStackError reports an attempt to delete the current stack.
type CurrentStackError struct{}

func (e *CurrentStackError) Error() string {
	return "can't delete current stack"
}

// NoSuchTaskError reports a 0-based task position that is out of range
// for the current stack.
type NoSuchTaskError struct {
	Index int64
}

func (e *NoSuchTaskError) Error() string {
	return fmt.Sprintf("task #%d doesn't exist", e.Index)
}

// NoSuchTasksError reports two task positions that are both out of
// range.
type NoSuchTasksError struct {
	First, Second int64
}

func (e *NoSuchTasksError) Error() string {
	return fmt.Sprintf("tasks #%d and #%d don't exist", e.First, e.Second)
}

// IsStackError reports whether err is (or wraps) one of the
// stack-management errors. Used by the CLI to pick a distinguishing
// exit code.
func IsStackError(err error) bool {
	var noSuch *NoSuchStackError
	var exists *StackExistsError
	var def *DefaultStackError
	var cur *CurrentStackError
	return errors.As(err, &noSuch) || errors.As(err, &exists) ||
		errors.As(err, &def) || errors.As(err, &cur)
}

// IsTaskError reports whether err is (or wraps) one of the
// task-position errors.
func IsTaskError(err error) bool {
	var one *NoSuchTaskError
	var two *NoSuchTasksError
	return errors.As(err, &one) || errors.As(err, &two)
}
