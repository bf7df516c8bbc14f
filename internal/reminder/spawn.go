package reminder

import (
	"os/exec"
	"syscall"
)

// Spawner launches the detached worker process.
type Spawner interface {
	Spawn(executable string, args ...string) error
}

// execSpawner starts a real OS process with no inherited standard
// streams, in its own session, and releases it without waiting.
type execSpawner struct{}

func (execSpawner) Spawn(executable string, args ...string) error {
	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
