package notification

// manager fans a notification out to every configured channel.
type manager struct {
	channels []Channel
	executor CommandExecutor
}

// NewManager builds a Manager from configuration. With no channels
// enabled, Send is a no-op that reports success; the caller decides
// whether silent delivery is acceptable.
func NewManager(cfg *Config, opts ...Option) Manager {
	m := &manager{}

	for _, opt := range opts {
		opt(m)
	}

	if cfg.OS.Enabled {
		var osOpts []Option
		if m.executor != nil {
			osOpts = append(osOpts, WithCommandExecutor(m.executor))
		}
		m.channels = append(m.channels, NewOSChannel(&cfg.OS, osOpts...))
	}
	if cfg.Log.Enabled {
		m.channels = append(m.channels, NewLogChannel(&cfg.Log))
	}

	return m
}

// Send dispatches to all channels and returns the last failure.
func (m *manager) Send(n Notification) error {
	var lastErr error
	for _, ch := range m.channels {
		if err := ch.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close cleans up all channels.
func (m *manager) Close() error {
	var lastErr error
	for _, ch := range m.channels {
		if err := ch.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ChannelCount returns the number of active channels.
func (m *manager) ChannelCount() int {
	return len(m.channels)
}
