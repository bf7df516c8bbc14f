// Package notification delivers desktop and log-file notifications
// for fired reminders.
package notification

import (
	"time"
)

// Notification is a single message to display to the user.
type Notification struct {
	Title     string
	Message   string
	Timestamp time.Time
}

// Manager dispatches notifications to all configured channels.
type Manager interface {
	Send(n Notification) error
	Close() error
	ChannelCount() int
}

// Channel is a single notification delivery mechanism.
type Channel interface {
	Send(n Notification) error
	Close() error
}

// Config selects and configures the delivery channels.
type Config struct {
	OS  OSConfig
	Log LogConfig
}

// OSConfig configures the desktop notification channel.
type OSConfig struct {
	Enabled bool
}

// LogConfig configures the append-only log channel.
type LogConfig struct {
	Enabled   bool
	Path      string
	MaxSizeMB int
}

// CommandExecutor runs the system command behind a desktop
// notification. It exists so tests can intercept the command.
type CommandExecutor interface {
	Execute(cmd string, args ...string) error
}

// MockCommandExecutor records or fakes command execution for tests.
type MockCommandExecutor struct {
	ExecuteFunc func(cmd string, args ...string) error
}

func (m *MockCommandExecutor) Execute(cmd string, args ...string) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(cmd, args...)
	}
	return nil
}

// Option configures a channel or manager.
type Option func(interface{})

// WithCommandExecutor sets a custom command executor.
func WithCommandExecutor(executor CommandExecutor) Option {
	return func(c interface{}) {
		if ch, ok := c.(*osChannel); ok {
			ch.executor = executor
		}
		if mgr, ok := c.(*manager); ok {
			mgr.executor = executor
		}
	}
}

// WithPlatform overrides the detected platform for OS notifications.
func WithPlatform(platform string) Option {
	return func(c interface{}) {
		if ch, ok := c.(*osChannel); ok {
			ch.platform = platform
		}
	}
}
