// Package testutil provides shared test utilities for CLI testing
// across packages.
package testutil

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"yakstack/cmd/yakstack/cmd"
	"yakstack/internal/notification"
)

// CLITest provides a test helper for running CLI commands against an
// isolated database.
type CLITest struct {
	t      *testing.T
	cfg    *cmd.Config
	tmpDir string
}

// NewCLITest creates a new CLI test helper with an isolated database
// file in a temp directory.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := &cmd.Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		// Point at a config file that does not exist so the
		// developer's real config cannot leak into tests.
		ConfigPath: filepath.Join(tmpDir, "config.yaml"),
	}

	return &CLITest{t: t, cfg: cfg, tmpDir: tmpDir}
}

// Config returns the test configuration for further customization.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// DBPath returns the isolated database path.
func (c *CLITest) DBPath() string {
	return c.cfg.DBPath
}

// Execute runs a CLI command and returns stdout, stderr and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test on a non-zero exit.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test on exit code 0.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	stdout, stderr, exitCode = c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr, exitCode
}

// AssertContains fails the test if output doesn't contain expected.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if the exit code doesn't match.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// RecordingSpawner records Spawn calls instead of launching
// processes. Safe for concurrent use.
type RecordingSpawner struct {
	mu    sync.Mutex
	Err   error // returned from Spawn when non-nil
	calls [][]string
}

// Spawn records the call.
func (s *RecordingSpawner) Spawn(executable string, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	call := append([]string{executable}, args...)
	s.calls = append(s.calls, call)
	return nil
}

// Calls returns the recorded spawn invocations.
func (s *RecordingSpawner) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

// SetupReminderSeams wires the config with a recording spawner, an
// instant sleep and a mock notification executor, returning the
// spawner and a buffer of executed notification commands.
func (c *CLITest) SetupReminderSeams() (*RecordingSpawner, *[]string) {
	c.t.Helper()

	spawner := &RecordingSpawner{}
	c.cfg.Spawner = spawner

	var mu sync.Mutex
	commands := []string{}
	c.cfg.NotificationExecutor = &notification.MockCommandExecutor{
		ExecuteFunc: func(cmdName string, args ...string) error {
			mu.Lock()
			defer mu.Unlock()
			commands = append(commands, cmdName+" "+strings.Join(args, " "))
			return nil
		},
	}
	c.cfg.WorkerSleep = func(time.Duration) {}
	return spawner, &commands
}
