package utils

import "testing"

func TestVerboseMode(t *testing.T) {
	logger := GetLogger()
	t.Cleanup(func() { logger.SetVerbose(false) })

	SetVerboseMode(true)
	if !logger.IsVerbose() {
		t.Error("verbose mode not enabled")
	}

	SetVerboseMode(false)
	if logger.IsVerbose() {
		t.Error("verbose mode not disabled")
	}
}

func TestGetLoggerIsSingleton(t *testing.T) {
	if GetLogger() != GetLogger() {
		t.Error("GetLogger returned distinct instances")
	}
}
