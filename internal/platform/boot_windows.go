//go:build windows

package platform

import (
	"time"

	"golang.org/x/sys/windows"
)

// BootClock reports when the machine last booted.
type BootClock struct{}

// NewBootClock creates the boot clock for this platform.
func NewBootClock() *BootClock {
	return &BootClock{}
}

// LastBootTime derives the boot time from the uptime tick counter.
func (BootClock) LastBootTime() (time.Time, error) {
	uptime := time.Duration(windows.GetTickCount64()) * time.Millisecond
	return time.Now().UTC().Add(-uptime), nil
}
