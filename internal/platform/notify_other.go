//go:build !windows

package platform

import (
	"log/slog"
	"sync"

	"rebootreminder/internal/notify"
)

// LogRenderer writes reminders to the log. The stand-in channel for
// platforms without a notification surface.
type LogRenderer struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	status string
}

// NewLogRenderer creates a logging channel with the given name.
func NewLogRenderer(name string, logger *slog.Logger) *LogRenderer {
	return &LogRenderer{name: name, logger: logger}
}

func (l *LogRenderer) Show(r notify.Reminder) error {
	actions := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, a.Command)
	}
	l.logger.Info("reminder", "channel", l.name, "title", r.Title, "message", r.Message, "actions", actions)
	return nil
}

func (l *LogRenderer) UpdateStatus(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if message != l.status {
		l.status = message
		l.logger.Debug("status changed", "channel", l.name, "status", message)
	}
}

// NewChannels builds the notification channels for this platform.
func NewChannels(logger *slog.Logger, appID string) []notify.Channel {
	return []notify.Channel{
		{Name: "tray", Renderer: NewLogRenderer("tray", logger)},
		{Name: "toast", Renderer: NewLogRenderer("toast", logger)},
	}
}
