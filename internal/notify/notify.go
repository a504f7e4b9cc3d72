// Package notify turns due reminders into user-facing notifications and
// routes the user's responses back into the reminder state.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rebootreminder/internal/config"
	"rebootreminder/internal/models"
	"rebootreminder/internal/timespan"
)

// ErrRebootDeclined is returned by RecordInteraction when the user was
// asked to confirm a reboot and said no.
var ErrRebootDeclined = errors.New("reboot declined by user")

// Action is one button offered on a reminder. Command is interpreted by
// RecordInteraction when the user picks it.
type Action struct {
	Label   string
	Command string
}

// Reminder is a fully rendered notification ready for display.
type Reminder struct {
	Title   string
	Message string
	Icon    string
	Actions []Action
}

// Renderer displays a reminder through one channel, such as the tray
// or a toast.
type Renderer interface {
	Show(r Reminder) error
}

// StatusRenderer is implemented by renderers with a persistent status
// surface, like a tray icon tooltip.
type StatusRenderer interface {
	UpdateStatus(message string)
}

// Channel pairs a renderer with its configured name.
type Channel struct {
	Name     string
	Renderer Renderer
}

// Sessions enumerates interactive user sessions.
type Sessions interface {
	Active() ([]models.UserSession, error)
}

// Trigger performs a system reboot, optionally asking the user first.
// It returns false when the user declined.
type Trigger interface {
	Reboot(countdown time.Duration, confirm bool, title, message string) (bool, error)
}

// Postponer pushes the next reminder out. Bound after construction to
// break the engine/coordinator construction cycle.
type Postponer interface {
	Postpone(d time.Duration) error
}

// Recorder persists the notification audit trail.
type Recorder interface {
	AppendNotification(models.Notification) error
	AppendInteraction(models.NotificationInteraction) error
}

// Coordinator decides whether a reminder may be shown right now and
// fans it out to the configured channels.
type Coordinator struct {
	cfg      *config.Manager
	recorder Recorder
	sessions Sessions
	trigger  Trigger
	channels []Channel
	logger   *slog.Logger

	postponer Postponer
}

// New creates a coordinator. Call BindPostponer before the first
// reminder can produce a deferral.
func New(cfg *config.Manager, recorder Recorder, sessions Sessions, trigger Trigger, channels []Channel, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		recorder: recorder,
		sessions: sessions,
		trigger:  trigger,
		channels: channels,
		logger:   logger,
	}
}

// BindPostponer wires the deferral target. Must be called before Start
// on the engine.
func (c *Coordinator) BindPostponer(p Postponer) {
	c.postponer = p
}

// ShowReminder surfaces a reminder unless a suppression gate applies.
// Suppressed reminders return nil and leave no notification record.
func (c *Coordinator) ShowReminder(kind, message, action string, deferrals []time.Duration) error {
	cfg := c.cfg.Get()
	now := time.Now()

	if InQuietHours(cfg.Notification.QuietHours, now) {
		c.logger.Debug("reminder suppressed by quiet hours", "kind", kind)
		return nil
	}

	sessions, err := c.sessions.Active()
	if err != nil {
		return fmt.Errorf("enumerate sessions: %w", err)
	}
	if len(sessions) == 0 {
		c.logger.Debug("reminder suppressed, no interactive sessions", "kind", kind)
		return nil
	}

	record := models.NewNotification(kind, message, sessions[0].UserName)
	if err := c.recorder.AppendNotification(record); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	reminder := Reminder{
		Title:   cfg.Notification.Branding.Title,
		Message: message,
		Icon:    cfg.Notification.Branding.IconPath,
		Actions: buildActions(action, deferrals),
	}

	delivered := 0
	for _, ch := range enabledChannels(c.channels, cfg.Notification.Type) {
		if err := ch.Renderer.Show(reminder); err != nil {
			c.logger.Warn("notification channel failed", "channel", ch.Name, "error", err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		c.logger.Warn("no notification channel delivered the reminder", "kind", kind)
	}
	return nil
}

// UpdateStatus pushes a status line to channels that carry one.
func (c *Coordinator) UpdateStatus(message string) {
	for _, ch := range c.channels {
		if sr, ok := ch.Renderer.(StatusRenderer); ok {
			sr.UpdateStatus(message)
		}
	}
}

// RecordInteraction persists the user's response and then acts on it.
// The record is written before any side effect so an interrupted reboot
// still leaves an audit trail.
func (c *Coordinator) RecordInteraction(notificationID, action, userName, sessionID string) error {
	record := models.NewNotificationInteraction(notificationID, action)
	record.UserName = userName
	record.SessionID = sessionID
	if err := c.recorder.AppendInteraction(record); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}

	switch {
	case strings.HasPrefix(action, "reboot:"):
		return c.doReboot()

	case strings.HasPrefix(action, "defer:"):
		span := strings.TrimPrefix(action, "defer:")
		d, err := timespan.Parse(span)
		if err != nil {
			return fmt.Errorf("deferral %q: %w", span, err)
		}
		if c.postponer == nil {
			return errors.New("no postponer bound")
		}
		return c.postponer.Postpone(d)

	default:
		// Dismissals and unknown actions only leave the audit record.
		return nil
	}
}

func (c *Coordinator) doReboot() error {
	cfg := c.cfg.Get().Reboot.SystemReboot
	if !cfg.Enabled {
		return errors.New("system reboot is disabled")
	}

	accepted, err := c.trigger.Reboot(cfg.Countdown, cfg.ShowConfirmation, cfg.ConfirmationTitle, cfg.ConfirmationMessage)
	if err != nil {
		return fmt.Errorf("trigger reboot: %w", err)
	}
	if !accepted {
		return ErrRebootDeclined
	}

	c.logger.Info("system reboot initiated", "countdown", cfg.Countdown)
	return nil
}

// InQuietHours reports whether now falls inside the configured quiet
// window. A window whose end is before its start wraps past midnight.
func InQuietHours(qh config.QuietHoursConfig, now time.Time) bool {
	if !qh.Enabled {
		return false
	}

	day := int(now.Weekday()) // 0 = Sunday
	active := false
	for _, d := range qh.DaysOfWeek {
		if d == day {
			active = true
			break
		}
	}
	if !active {
		return false
	}

	start, err := minutesOfDay(qh.StartTime)
	if err != nil {
		return false
	}
	end, err := minutesOfDay(qh.EndTime)
	if err != nil {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func buildActions(primary string, deferrals []time.Duration) []Action {
	var actions []Action
	if primary == "reboot:now" {
		actions = append(actions, Action{Label: "Reboot now", Command: "reboot:now"})
	} else if primary != "" {
		actions = append(actions, Action{Label: primary, Command: "acknowledge"})
	}
	for _, d := range deferrals {
		span := timespan.Format(d)
		actions = append(actions, Action{Label: "Remind me in " + span, Command: "defer:" + span})
	}
	actions = append(actions, Action{Label: "Dismiss", Command: "dismiss"})
	return actions
}

func enabledChannels(channels []Channel, kind string) []Channel {
	if kind == "both" {
		return channels
	}
	var out []Channel
	for _, ch := range channels {
		if ch.Name == kind {
			out = append(out, ch)
		}
	}
	return out
}
