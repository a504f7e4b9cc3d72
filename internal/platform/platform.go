// Package platform holds the OS integrations: session enumeration,
// notification delivery, reboot triggering, service control and power
// event monitoring. Windows carries the real implementations; other
// platforms get logging stand-ins so the service can be developed and
// tested anywhere.
package platform

import "errors"

// ErrUnsupported is returned by operations that only exist on Windows.
var ErrUnsupported = errors.New("not supported on this platform")
