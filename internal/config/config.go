package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rebootreminder/internal/schedule"
	"rebootreminder/internal/timespan"
)

// Config represents the full configuration of the reminder service.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Notification NotificationConfig `yaml:"notification"`
	Reboot       RebootConfig       `yaml:"reboot"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	Watchdog     WatchdogConfig     `yaml:"watchdog"`
	Server       ServerConfig       `yaml:"server"`
}

// ServiceConfig describes the service identity and loop cadences.
// Durations may be given as timespan strings (canonical) or through the
// legacy numeric fields; the string form wins when both are present.
type ServiceConfig struct {
	Name                 string `yaml:"name"`
	DisplayName          string `yaml:"display_name"`
	Description          string `yaml:"description"`
	CheckInterval        string `yaml:"check_interval"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	ConfigRefresh        string `yaml:"config_refresh"`
	ConfigRefreshMinutes int    `yaml:"config_refresh_minutes"`

	CheckEvery   time.Duration `yaml:"-"`
	RefreshEvery time.Duration `yaml:"-"`
}

// NotificationConfig controls how reminders are surfaced.
type NotificationConfig struct {
	Type       string           `yaml:"type"` // tray, toast or both
	Branding   BrandingConfig   `yaml:"branding"`
	Messages   MessagesConfig   `yaml:"messages"`
	QuietHours QuietHoursConfig `yaml:"quiet_hours"`
}

// BrandingConfig holds presentation details for notifications.
type BrandingConfig struct {
	Title    string `yaml:"title"`
	IconPath string `yaml:"icon_path"`
	Company  string `yaml:"company"`
}

// MessagesConfig holds the user-facing message templates.
type MessagesConfig struct {
	RebootRequired    string `yaml:"reboot_required"`
	RebootRecommended string `yaml:"reboot_recommended"`
	RebootPostponed   string `yaml:"reboot_postponed"`
	RebootCompleted   string `yaml:"reboot_completed"`
	ActionRequired    string `yaml:"action_required"`
	ActionRecommended string `yaml:"action_recommended"`
}

// QuietHoursConfig defines a window during which reminders are suppressed.
// Days use 0=Sunday through 6=Saturday; the window may wrap past midnight.
type QuietHoursConfig struct {
	Enabled    bool   `yaml:"enabled"`
	StartTime  string `yaml:"start_time"`
	EndTime    string `yaml:"end_time"`
	DaysOfWeek []int  `yaml:"days_of_week"`
}

// RebootConfig holds detection and escalation settings.
type RebootConfig struct {
	Timeframes       []TimeframeConfig      `yaml:"timeframes"`
	DetectionMethods DetectionMethodsConfig `yaml:"detection_methods"`
	SystemReboot     SystemRebootConfig     `yaml:"system_reboot"`

	// Schedule is the normalized timeframe table derived from Timeframes.
	Schedule []schedule.Timeframe `yaml:"-"`
}

// TimeframeConfig is one raw escalation tier. Bounds are elapsed time
// since the reboot became required; the legacy *_hours/*_minutes fields
// are accepted as aliases for the timespan strings.
type TimeframeConfig struct {
	Min                     string   `yaml:"min"`
	Max                     string   `yaml:"max"`
	MinHours                *int     `yaml:"min_hours"`
	MaxHours                *int     `yaml:"max_hours"`
	ReminderInterval        string   `yaml:"reminder_interval"`
	ReminderIntervalHours   *int     `yaml:"reminder_interval_hours"`
	ReminderIntervalMinutes *int     `yaml:"reminder_interval_minutes"`
	Deferrals               []string `yaml:"deferrals"`
}

// DetectionMethodsConfig toggles the individual reboot probes.
type DetectionMethodsConfig struct {
	WindowsUpdate         bool `yaml:"windows_update"`
	SCCM                  bool `yaml:"sccm"`
	Registry              bool `yaml:"registry"`
	PendingFileOperations bool `yaml:"pending_file_operations"`
}

// SystemRebootConfig controls user-initiated reboots.
type SystemRebootConfig struct {
	Enabled             bool   `yaml:"enabled"`
	CountdownSeconds    int    `yaml:"countdown_seconds"`
	ShowConfirmation    bool   `yaml:"show_confirmation"`
	ConfirmationTitle   string `yaml:"confirmation_title"`
	ConfirmationMessage string `yaml:"confirmation_message"`

	Countdown time.Duration `yaml:"-"`
}

// DatabaseConfig locates the persisted state file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// WatchdogConfig controls the supervisor loop.
type WatchdogConfig struct {
	Enabled              bool   `yaml:"enabled"`
	CheckInterval        string `yaml:"check_interval"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	MaxRestartAttempts   int    `yaml:"max_restart_attempts"`
	RestartDelay         string `yaml:"restart_delay"`
	RestartDelaySeconds  int    `yaml:"restart_delay_seconds"`
	ServiceName          string `yaml:"service_name"`

	CheckEvery time.Duration `yaml:"-"`
	Delay      time.Duration `yaml:"-"`
}

// ServerConfig controls the local status endpoint. An empty address
// disables the server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns sensible defaults in case no configuration file
// is provided.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:          "RebootReminder",
			DisplayName:   "Reboot Reminder Service",
			Description:   "Provides notifications when system reboots are necessary",
			CheckInterval: "5m",
			ConfigRefresh: "1h",
		},
		Notification: NotificationConfig{
			Type: "both",
			Branding: BrandingConfig{
				Title:    "Reboot Reminder",
				IconPath: "icon.ico",
				Company:  "IT Department",
			},
			Messages: MessagesConfig{
				RebootRequired:    "Your computer requires a reboot to complete recent updates.",
				RebootRecommended: "It is recommended to reboot your computer to apply recent updates.",
				RebootPostponed:   "Reboot postponed. You will be reminded again later.",
				RebootCompleted:   "Your computer was rebooted successfully.",
				ActionRequired:    "Reboot required",
				ActionRecommended: "Reboot recommended",
			},
			QuietHours: QuietHoursConfig{
				Enabled:    false,
				StartTime:  "22:00",
				EndTime:    "08:00",
				DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
			},
		},
		Reboot: RebootConfig{
			Timeframes: []TimeframeConfig{
				{Min: "0h", Max: "24h", ReminderInterval: "4h", Deferrals: []string{"1h", "4h", "8h"}},
				{Min: "24h", Max: "48h", ReminderInterval: "2h", Deferrals: []string{"1h", "2h"}},
				{Min: "48h", ReminderInterval: "1h", Deferrals: []string{"1h"}},
			},
			DetectionMethods: DetectionMethodsConfig{
				WindowsUpdate:         true,
				SCCM:                  true,
				Registry:              true,
				PendingFileOperations: true,
			},
			SystemReboot: SystemRebootConfig{
				Enabled:             true,
				CountdownSeconds:    30,
				ShowConfirmation:    true,
				ConfirmationTitle:   "System Restart Required",
				ConfirmationMessage: "The system needs to restart. Do you want to restart now?",
			},
		},
		Database: DatabaseConfig{Path: "rebootreminder.json"},
		Logging:  LoggingConfig{Level: "info"},
		Watchdog: WatchdogConfig{
			Enabled:            true,
			CheckInterval:      "1m",
			MaxRestartAttempts: 3,
			RestartDelay:       "10s",
			ServiceName:        "RebootReminder",
		},
	}
}

// Load reads configuration from a yaml file. A missing file falls back
// to defaults; malformed content or invalid values are errors.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults only.
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize reconciles timespan strings with their legacy aliases and
// derives the duration-typed fields. The timespan string is canonical;
// legacy numeric fields apply only when the string is absent.
func (c *Config) normalize() error {
	var err error

	c.Service.CheckEvery, err = resolveDuration(
		c.Service.CheckInterval,
		time.Duration(c.Service.CheckIntervalSeconds)*time.Second,
		5*time.Minute,
	)
	if err != nil {
		return fmt.Errorf("service check_interval: %w", err)
	}

	c.Service.RefreshEvery, err = resolveDuration(
		c.Service.ConfigRefresh,
		time.Duration(c.Service.ConfigRefreshMinutes)*time.Minute,
		time.Hour,
	)
	if err != nil {
		return fmt.Errorf("service config_refresh: %w", err)
	}

	c.Watchdog.CheckEvery, err = resolveDuration(
		c.Watchdog.CheckInterval,
		time.Duration(c.Watchdog.CheckIntervalSeconds)*time.Second,
		time.Minute,
	)
	if err != nil {
		return fmt.Errorf("watchdog check_interval: %w", err)
	}

	c.Watchdog.Delay, err = resolveDuration(
		c.Watchdog.RestartDelay,
		time.Duration(c.Watchdog.RestartDelaySeconds)*time.Second,
		10*time.Second,
	)
	if err != nil {
		return fmt.Errorf("watchdog restart_delay: %w", err)
	}

	c.Reboot.SystemReboot.Countdown = time.Duration(c.Reboot.SystemReboot.CountdownSeconds) * time.Second

	c.Reboot.Schedule = c.Reboot.Schedule[:0]
	for i, raw := range c.Reboot.Timeframes {
		tf, err := normalizeTimeframe(raw)
		if err != nil {
			return fmt.Errorf("timeframe %d: %w", i, err)
		}
		c.Reboot.Schedule = append(c.Reboot.Schedule, tf)
	}

	return nil
}

func normalizeTimeframe(raw TimeframeConfig) (schedule.Timeframe, error) {
	var tf schedule.Timeframe

	minHours, err := resolveHours(raw.Min, raw.MinHours, 0)
	if err != nil {
		return tf, fmt.Errorf("min: %w", err)
	}
	tf.MinHours = minHours

	maxHours, err := resolveHours(raw.Max, raw.MaxHours, 0)
	if err != nil {
		return tf, fmt.Errorf("max: %w", err)
	}
	tf.MaxHours = maxHours

	switch {
	case raw.ReminderInterval != "":
		tf.ReminderInterval, err = timespan.Parse(raw.ReminderInterval)
		if err != nil {
			return tf, fmt.Errorf("reminder_interval: %w", err)
		}
	case raw.ReminderIntervalHours != nil:
		tf.ReminderInterval = time.Duration(*raw.ReminderIntervalHours) * time.Hour
	case raw.ReminderIntervalMinutes != nil:
		tf.ReminderInterval = time.Duration(*raw.ReminderIntervalMinutes) * time.Minute
	}

	for _, d := range raw.Deferrals {
		parsed, err := timespan.Parse(d)
		if err != nil {
			return tf, fmt.Errorf("deferral %q: %w", d, err)
		}
		tf.Deferrals = append(tf.Deferrals, parsed)
	}

	return tf, nil
}

func resolveHours(span string, legacy *int, fallback int) (int, error) {
	if span != "" {
		d, err := timespan.Parse(span)
		if err != nil {
			return 0, err
		}
		return int(d / time.Hour), nil
	}
	if legacy != nil {
		return *legacy, nil
	}
	return fallback, nil
}

func resolveDuration(span string, legacy, fallback time.Duration) (time.Duration, error) {
	if span != "" {
		return timespan.Parse(span)
	}
	if legacy > 0 {
		return legacy, nil
	}
	return fallback, nil
}

func (c *Config) validate() error {
	switch c.Notification.Type {
	case "tray", "toast", "both":
	default:
		return fmt.Errorf("notification type must be tray, toast or both, got %q", c.Notification.Type)
	}

	if len(c.Reboot.Schedule) == 0 {
		return errors.New("configuration must define at least one timeframe")
	}
	for i, tf := range c.Reboot.Schedule {
		last := i == len(c.Reboot.Schedule)-1
		if last {
			if tf.MaxHours != 0 {
				return fmt.Errorf("timeframe %d: last timeframe must be open-ended", i)
			}
			continue
		}
		if tf.MaxHours <= tf.MinHours {
			return fmt.Errorf("timeframe %d: max (%dh) must be greater than min (%dh)", i, tf.MaxHours, tf.MinHours)
		}
		if next := c.Reboot.Schedule[i+1]; next.MinHours != tf.MaxHours {
			return fmt.Errorf("timeframe %d: timeframes must be contiguous (%dh followed by %dh)", i, tf.MaxHours, next.MinHours)
		}
	}

	if qh := c.Notification.QuietHours; qh.Enabled {
		if _, err := time.Parse("15:04", qh.StartTime); err != nil {
			return fmt.Errorf("quiet hours start_time %q: expected HH:MM", qh.StartTime)
		}
		if _, err := time.Parse("15:04", qh.EndTime); err != nil {
			return fmt.Errorf("quiet hours end_time %q: expected HH:MM", qh.EndTime)
		}
		for _, day := range qh.DaysOfWeek {
			if day < 0 || day > 6 {
				return fmt.Errorf("quiet hours day %d out of range 0-6", day)
			}
		}
	}

	if c.Watchdog.Enabled {
		if c.Watchdog.CheckEvery <= 0 {
			return errors.New("watchdog check_interval must be positive")
		}
		if c.Watchdog.MaxRestartAttempts <= 0 {
			return errors.New("watchdog max_restart_attempts must be positive")
		}
		if c.Watchdog.ServiceName == "" {
			return errors.New("watchdog service_name is required")
		}
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return nil
}
