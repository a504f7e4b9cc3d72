package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how strongly a reboot source demands a reboot.
type Severity string

const (
	SeverityRequired    Severity = "required"
	SeverityRecommended Severity = "recommended"
	SeverityOptional    Severity = "optional"
)

// RebootSource is a single piece of evidence that a reboot is needed.
// Sources are immutable once created; each detection pass produces a
// fresh list that replaces the previous one.
type RebootSource struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Severity    Severity   `json:"severity"`
	DetectedAt  time.Time  `json:"detected_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Details     string     `json:"details,omitempty"`
}

// NewRebootSource creates a source stamped with the current time.
func NewRebootSource(name, description string, severity Severity) RebootSource {
	return RebootSource{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Severity:    severity,
		DetectedAt:  time.Now().UTC(),
	}
}

// RebootState is the single long-lived mutable record describing whether
// a reboot is outstanding and when the next reminder is due.
type RebootState struct {
	ID                  string         `json:"id"`
	RebootRequired      bool           `json:"reboot_required"`
	RebootRecommended   bool           `json:"reboot_recommended"`
	LastCheckTime       time.Time      `json:"last_check_time"`
	RebootRequiredSince *time.Time     `json:"reboot_required_since,omitempty"`
	LastRebootTime      *time.Time     `json:"last_reboot_time,omitempty"`
	PostponeCount       int            `json:"postpone_count"`
	NextReminderTime    *time.Time     `json:"next_reminder_time,omitempty"`
	ScheduledRebootTime *time.Time     `json:"scheduled_reboot_time,omitempty"`
	RebootReason        string         `json:"reboot_reason,omitempty"`
	Sources             []RebootSource `json:"sources"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// NewRebootState creates an initial state record.
func NewRebootState(required, recommended bool) *RebootState {
	now := time.Now().UTC()
	s := &RebootState{
		ID:                uuid.NewString(),
		RebootRequired:    required,
		RebootRecommended: recommended,
		LastCheckTime:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if required {
		s.RebootRequiredSince = &now
	}
	return s
}

// RebootHistory records a completed reboot, appended when a reboot is
// observed or triggered.
type RebootHistory struct {
	ID           string    `json:"id"`
	RebootTime   time.Time `json:"reboot_time"`
	Reason       string    `json:"reason,omitempty"`
	Source       string    `json:"source,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	ComputerName string    `json:"computer_name,omitempty"`
	Success      bool      `json:"success"`
	Duration     *int64    `json:"duration,omitempty"`
}

// NewRebootHistory creates a history record for a reboot at the given time.
func NewRebootHistory(rebootTime time.Time, success bool) RebootHistory {
	return RebootHistory{
		ID:         uuid.NewString(),
		RebootTime: rebootTime,
		Success:    success,
	}
}

// Notification is an audit record written each time a reminder is surfaced.
type Notification struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	UserName  string    `json:"user_name,omitempty"`
	Dismissed bool      `json:"dismissed"`
	Action    string    `json:"action,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification creates a notification record stamped with the current time.
func NewNotification(kind, message, userName string) Notification {
	now := time.Now().UTC()
	return Notification{
		ID:        uuid.NewString(),
		Timestamp: now,
		Kind:      kind,
		Message:   message,
		UserName:  userName,
		CreatedAt: now,
	}
}

// NotificationInteraction records what a user did with a notification.
type NotificationInteraction struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	UserName       string    `json:"user_name,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	Details        string    `json:"details,omitempty"`
}

// NewNotificationInteraction creates an interaction record for a notification.
func NewNotificationInteraction(notificationID, action string) NotificationInteraction {
	return NotificationInteraction{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Timestamp:      time.Now().UTC(),
		Action:         action,
	}
}

// UserSession describes an interactive session on the machine.
type UserSession struct {
	ID        string `json:"id"`
	UserName  string `json:"user_name"`
	SessionID string `json:"session_id"`
	IsConsole bool   `json:"is_console"`
	IsRDP     bool   `json:"is_rdp"`
}
