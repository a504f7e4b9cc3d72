package config

import (
	"log/slog"
	"sync"
	"time"
)

// Manager holds the active configuration and refreshes it from disk in
// the background. Readers get a consistent snapshot via Get; a failed
// reload keeps the previous configuration in place.
type Manager struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	current  Config
	onReload []func(Config)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewManager creates a manager seeded with an already-loaded config.
func NewManager(path string, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		path:    path,
		logger:  logger,
		current: cfg,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Get returns the current configuration snapshot. The snapshot shares
// slices with the manager and must be treated as read-only.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnReload registers a callback invoked after each successful reload.
// Must be called before Start.
func (m *Manager) OnReload(fn func(Config)) {
	m.onReload = append(m.onReload, fn)
}

// Start launches the periodic refresh loop.
func (m *Manager) Start() {
	go m.loop()
}

// Stop terminates the refresh loop and waits for it to exit.
func (m *Manager) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Manager) loop() {
	defer close(m.doneCh)

	interval := m.Get().Service.RefreshEvery
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Refresh()
		}
	}
}

// Refresh re-reads the configuration file once. Invalid or unreadable
// content is logged and the previous configuration stays active.
func (m *Manager) Refresh() {
	cfg, err := Load(m.path)
	if err != nil {
		m.logger.Warn("config reload failed, keeping previous", "path", m.path, "error", err)
		return
	}

	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()

	m.logger.Debug("configuration reloaded", "path", m.path)
	for _, fn := range m.onReload {
		fn(cfg)
	}
}
