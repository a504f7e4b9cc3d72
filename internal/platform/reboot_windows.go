//go:build windows

package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sys/windows"
)

// RebootTrigger reboots the machine through shutdown.exe, optionally
// asking the console user first.
type RebootTrigger struct {
	logger *slog.Logger
}

// NewRebootTrigger creates the reboot trigger for this platform.
func NewRebootTrigger(logger *slog.Logger) *RebootTrigger {
	return &RebootTrigger{logger: logger}
}

// Reboot asks for confirmation when requested and then schedules the
// restart. Returns false without error when the user declined.
func (t *RebootTrigger) Reboot(countdown time.Duration, confirm bool, title, message string) (bool, error) {
	if confirm {
		session := windows.WTSGetActiveConsoleSessionId()
		if session != 0xFFFFFFFF {
			response, err := sendSessionMessage(session, title, message, mbYesNo|mbIconExclamation, 0, true)
			if err != nil {
				return false, fmt.Errorf("confirmation dialog: %w", err)
			}
			if response != idYes {
				t.logger.Info("reboot declined by user", "session", session)
				return false, nil
			}
		}
		// No console session to ask; proceed with the countdown so the
		// shutdown banner still gives warning.
	}

	secs := int(countdown / time.Second)
	if secs < 0 {
		secs = 0
	}

	cmd := exec.Command("shutdown.exe",
		"/r",
		"/t", strconv.Itoa(secs),
		"/c", "Restarting to complete pending updates",
		"/d", "p:2:4",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return false, fmt.Errorf("shutdown.exe: %w: %s", err, out)
	}

	t.logger.Info("restart scheduled", "countdown", countdown)
	return true, nil
}
