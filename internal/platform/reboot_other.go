//go:build !windows

package platform

import (
	"log/slog"
	"time"
)

// RebootTrigger is a stand-in that only logs. Rebooting the developer's
// machine during a test run would be unfriendly.
type RebootTrigger struct {
	logger *slog.Logger
}

// NewRebootTrigger creates the reboot trigger for this platform.
func NewRebootTrigger(logger *slog.Logger) *RebootTrigger {
	return &RebootTrigger{logger: logger}
}

func (t *RebootTrigger) Reboot(countdown time.Duration, confirm bool, title, message string) (bool, error) {
	t.logger.Info("reboot requested", "countdown", countdown, "confirm", confirm)
	return false, ErrUnsupported
}
