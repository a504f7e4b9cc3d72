//go:build windows

package platform

import (
	"fmt"
	"log/slog"
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"

	"rebootreminder/internal/models"
)

// rdpProtocol is the WTSClientProtocolType value for RDP sessions.
const rdpProtocol = 2

// WTSSessions enumerates interactive sessions through the terminal
// services API.
type WTSSessions struct {
	logger *slog.Logger
}

// NewSessions creates the session enumerator for this platform.
func NewSessions(logger *slog.Logger) *WTSSessions {
	return &WTSSessions{logger: logger}
}

// Active returns the sessions with a logged-on user. Sessions whose
// user name cannot be read are skipped.
func (w *WTSSessions) Active() ([]models.UserSession, error) {
	var (
		info  *windows.WTS_SESSION_INFO
		count uint32
	)
	if err := windows.WTSEnumerateSessions(0, 0, 1, &info, &count); err != nil {
		return nil, fmt.Errorf("enumerate sessions: %w", err)
	}
	defer windows.WTSFreeMemory(uintptr(unsafe.Pointer(info)))

	var out []models.UserSession
	for _, si := range unsafe.Slice(info, count) {
		if si.State != windows.WTSActive {
			continue
		}
		user, err := querySessionString(si.SessionID, windows.WTSUserName)
		if err != nil {
			w.logger.Debug("session user query failed", "session", si.SessionID, "error", err)
			continue
		}
		if user == "" {
			continue
		}

		station := windows.UTF16PtrToString(si.WindowStationName)
		protocol, _ := querySessionUint16(si.SessionID, windows.WTSClientProtocolType)

		out = append(out, models.UserSession{
			ID:        strconv.FormatUint(uint64(si.SessionID), 10),
			UserName:  user,
			SessionID: strconv.FormatUint(uint64(si.SessionID), 10),
			IsConsole: station == "Console",
			IsRDP:     protocol == rdpProtocol,
		})
	}
	return out, nil
}

func querySessionString(sessionID uint32, infoClass uint32) (string, error) {
	var (
		buf  *uint16
		size uint32
	)
	if err := windows.WTSQuerySessionInformation(0, sessionID, infoClass, &buf, &size); err != nil {
		return "", err
	}
	defer windows.WTSFreeMemory(uintptr(unsafe.Pointer(buf)))
	return windows.UTF16PtrToString(buf), nil
}

func querySessionUint16(sessionID uint32, infoClass uint32) (uint16, error) {
	var (
		buf  *uint16
		size uint32
	)
	if err := windows.WTSQuerySessionInformation(0, sessionID, infoClass, &buf, &size); err != nil {
		return 0, err
	}
	defer windows.WTSFreeMemory(uintptr(unsafe.Pointer(buf)))
	return *buf, nil
}
