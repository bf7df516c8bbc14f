package notification

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// logChannel appends notifications to a log file.
type logChannel struct {
	config *LogConfig
	file   *os.File
	mu     sync.Mutex
}

// NewLogChannel creates a log-file notification channel.
func NewLogChannel(cfg *LogConfig) Channel {
	return &logChannel{config: cfg}
}

// Send writes one line per notification.
func (c *logChannel) Send(n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFile(); err != nil {
		return err
	}

	line := fmt.Sprintf("%s [REMINDER] %s\n",
		n.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), n.Message)
	if _, err := c.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return c.file.Sync()
}

func (c *logChannel) ensureFile() error {
	if c.file != nil {
		return nil
	}

	dir := filepath.Dir(c.config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := c.rotateIfNeeded(); err != nil {
		return err
	}

	file, err := os.OpenFile(c.config.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	c.file = file
	return nil
}

// rotateIfNeeded renames the log aside once it exceeds the size cap.
func (c *logChannel) rotateIfNeeded() error {
	if c.config.MaxSizeMB <= 0 {
		return nil
	}
	info, err := os.Stat(c.config.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < int64(c.config.MaxSizeMB)*1024*1024 {
		return nil
	}
	if err := os.Rename(c.config.Path, c.config.Path+".old"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

// Close closes the log file.
func (c *logChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file != nil {
		err := c.file.Close()
		c.file = nil
		return err
	}
	return nil
}

// ReadLog returns all entries from a notification log, nil when the
// file does not exist.
func ReadLog(path string) ([]string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entries = append(entries, scanner.Text())
	}
	return entries, scanner.Err()
}
