//go:build windows

package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"rebootreminder/internal/notify"
)

var (
	wtsapi32            = windows.NewLazySystemDLL("wtsapi32.dll")
	procWTSSendMessageW = wtsapi32.NewProc("WTSSendMessageW")
)

// Message box style and response codes used with WTSSendMessage.
const (
	mbOK              = 0x00000000
	mbYesNo           = 0x00000004
	mbIconExclamation = 0x00000030
	idYes             = 6
)

// sendSessionMessage shows a message box inside the given session. When
// wait is false it returns immediately with response 0.
func sendSessionMessage(sessionID uint32, title, message string, style uint32, timeoutSec uint32, wait bool) (uint32, error) {
	titleUTF16, err := windows.UTF16FromString(title)
	if err != nil {
		return 0, err
	}
	messageUTF16, err := windows.UTF16FromString(message)
	if err != nil {
		return 0, err
	}

	var (
		response uint32
		waitFlag uintptr
	)
	if wait {
		waitFlag = 1
	}

	// Lengths are in bytes, excluding the terminating NUL.
	titleLen := uintptr(2 * (len(titleUTF16) - 1))
	messageLen := uintptr(2 * (len(messageUTF16) - 1))

	ok, _, callErr := procWTSSendMessageW.Call(
		0, // WTS_CURRENT_SERVER_HANDLE
		uintptr(sessionID),
		uintptr(unsafe.Pointer(&titleUTF16[0])),
		titleLen,
		uintptr(unsafe.Pointer(&messageUTF16[0])),
		messageLen,
		uintptr(style),
		uintptr(timeoutSec),
		uintptr(unsafe.Pointer(&response)),
		waitFlag,
	)
	if ok == 0 {
		return 0, fmt.Errorf("WTSSendMessage: %w", callErr)
	}
	return response, nil
}

// DialogRenderer delivers reminders as a session message box. Used as
// the tray channel: a service has no desktop of its own, so the dialog
// stands in for the tray balloon.
type DialogRenderer struct {
	logger *slog.Logger
}

// NewDialogRenderer creates the dialog channel.
func NewDialogRenderer(logger *slog.Logger) *DialogRenderer {
	return &DialogRenderer{logger: logger}
}

func (d *DialogRenderer) Show(r notify.Reminder) error {
	session := windows.WTSGetActiveConsoleSessionId()
	if session == 0xFFFFFFFF {
		return fmt.Errorf("no active console session")
	}

	message := r.Message
	if len(r.Actions) > 0 {
		var labels []string
		for _, a := range r.Actions {
			labels = append(labels, a.Label)
		}
		message += "\n\nOptions: " + strings.Join(labels, ", ")
	}

	_, err := sendSessionMessage(session, r.Title, message, mbOK|mbIconExclamation, 0, false)
	return err
}

// ToastRenderer delivers reminders as a Windows toast notification by
// shelling out to PowerShell. Avoids a COM binding while still using
// the native toast surface.
type ToastRenderer struct {
	logger *slog.Logger
	appID  string
}

// NewToastRenderer creates the toast channel. appID is the application
// identity shown in the Action Center.
func NewToastRenderer(logger *slog.Logger, appID string) *ToastRenderer {
	if appID == "" {
		appID = "RebootReminder"
	}
	return &ToastRenderer{logger: logger, appID: appID}
}

func (t *ToastRenderer) Show(r notify.Reminder) error {
	script := buildToastScript(t.appID, r.Title, r.Message)
	cmd := exec.Command("powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toast: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func buildToastScript(appID, title, message string) string {
	var b strings.Builder
	b.WriteString("[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null;")
	b.WriteString("[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null;")
	b.WriteString("$xml = New-Object Windows.Data.Xml.Dom.XmlDocument;")
	b.WriteString(fmt.Sprintf("$xml.LoadXml('<toast><visual><binding template=\"ToastText02\"><text id=\"1\">%s</text><text id=\"2\">%s</text></binding></visual></toast>');",
		escapeToast(title), escapeToast(message)))
	b.WriteString("$toast = New-Object Windows.UI.Notifications.ToastNotification $xml;")
	b.WriteString(fmt.Sprintf("[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('%s').Show($toast);", escapeToast(appID)))
	return b.String()
}

func escapeToast(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

// NewChannels builds the notification channels for this platform.
func NewChannels(logger *slog.Logger, appID string) []notify.Channel {
	return []notify.Channel{
		{Name: "tray", Renderer: NewDialogRenderer(logger)},
		{Name: "toast", Renderer: NewToastRenderer(logger, appID)},
	}
}
