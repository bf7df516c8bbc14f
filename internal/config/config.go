// Package config handles application configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content.
func GetSampleConfig() string {
	return sampleConfig
}

// Config represents the application configuration.
type Config struct {
	DBPath        string              `yaml:"db_path"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// NotificationsConfig selects the reminder delivery channels.
type NotificationsConfig struct {
	OSNotification  *bool  `yaml:"os_notification"` // default: true
	LogNotification bool   `yaml:"log_notification"`
	LogPath         string `yaml:"log_path"`
	LogMaxSizeMB    int    `yaml:"log_max_size_mb"`
}

// OSNotificationEnabled resolves the tri-state os_notification flag.
func (n *NotificationsConfig) OSNotificationEnabled() bool {
	if n.OSNotification == nil {
		return true
	}
	return *n.OSNotification
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "yakstack", "config.yaml"), nil
}

// Load reads the configuration from path. A missing file is not an
// error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
