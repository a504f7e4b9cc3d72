//go:build !windows

package platform

import "time"

// BootClock reports when the machine last booted.
type BootClock struct{}

// NewBootClock creates the boot clock for this platform.
func NewBootClock() *BootClock {
	return &BootClock{}
}

func (BootClock) LastBootTime() (time.Time, error) {
	return time.Time{}, ErrUnsupported
}
