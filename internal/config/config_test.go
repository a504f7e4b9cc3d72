package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.Name != "RebootReminder" {
		t.Errorf("service name = %q", cfg.Service.Name)
	}
	if cfg.Service.CheckEvery != 5*time.Minute {
		t.Errorf("check interval = %v, want 5m", cfg.Service.CheckEvery)
	}
	if len(cfg.Reboot.Schedule) != 3 {
		t.Fatalf("expected 3 default timeframes, got %d", len(cfg.Reboot.Schedule))
	}
	if last := cfg.Reboot.Schedule[2]; last.MaxHours != 0 {
		t.Errorf("last default timeframe must be open-ended, got max=%d", last.MaxHours)
	}
}

func TestLoadTimespanStrings(t *testing.T) {
	path := writeConfig(t, `
service:
  check_interval: 90s
  config_refresh: 30m
watchdog:
  enabled: true
  check_interval: 45s
  restart_delay: 5s
  max_restart_attempts: 5
  service_name: RebootReminder
reboot:
  timeframes:
    - min: 0h
      max: 24h
      reminder_interval: 4h
      deferrals: [1h, 4h]
    - min: 24h
      reminder_interval: 30m
      deferrals: [30m]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.CheckEvery != 90*time.Second {
		t.Errorf("check interval = %v", cfg.Service.CheckEvery)
	}
	if cfg.Service.RefreshEvery != 30*time.Minute {
		t.Errorf("config refresh = %v", cfg.Service.RefreshEvery)
	}
	if cfg.Watchdog.CheckEvery != 45*time.Second || cfg.Watchdog.Delay != 5*time.Second {
		t.Errorf("watchdog intervals = %v/%v", cfg.Watchdog.CheckEvery, cfg.Watchdog.Delay)
	}

	sched := cfg.Reboot.Schedule
	if len(sched) != 2 {
		t.Fatalf("expected 2 timeframes, got %d", len(sched))
	}
	if sched[0].MinHours != 0 || sched[0].MaxHours != 24 || sched[0].ReminderInterval != 4*time.Hour {
		t.Errorf("first timeframe = %+v", sched[0])
	}
	if len(sched[0].Deferrals) != 2 || sched[0].Deferrals[1] != 4*time.Hour {
		t.Errorf("first deferrals = %v", sched[0].Deferrals)
	}
	if sched[1].MinHours != 24 || sched[1].MaxHours != 0 || sched[1].ReminderInterval != 30*time.Minute {
		t.Errorf("second timeframe = %+v", sched[1])
	}
}

func TestLoadLegacyNumericAliases(t *testing.T) {
	path := writeConfig(t, `
service:
  check_interval_seconds: 120
  config_refresh_minutes: 15
reboot:
  timeframes:
    - min_hours: 0
      max_hours: 48
      reminder_interval_hours: 2
    - min_hours: 48
      reminder_interval_minutes: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.CheckEvery != 2*time.Minute {
		t.Errorf("check interval = %v", cfg.Service.CheckEvery)
	}
	if cfg.Service.RefreshEvery != 15*time.Minute {
		t.Errorf("config refresh = %v", cfg.Service.RefreshEvery)
	}
	sched := cfg.Reboot.Schedule
	if sched[0].MaxHours != 48 || sched[0].ReminderInterval != 2*time.Hour {
		t.Errorf("first timeframe = %+v", sched[0])
	}
	if sched[1].ReminderInterval != 30*time.Minute {
		t.Errorf("second timeframe = %+v", sched[1])
	}
}

func TestTimespanStringWinsOverLegacy(t *testing.T) {
	path := writeConfig(t, `
service:
  check_interval: 1m
  check_interval_seconds: 999
reboot:
  timeframes:
    - min: 0h
      max: 24h
      max_hours: 72
      reminder_interval: 1h
    - min: 24h
      reminder_interval: 1h
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.CheckEvery != time.Minute {
		t.Errorf("check interval = %v, timespan string should win", cfg.Service.CheckEvery)
	}
	if cfg.Reboot.Schedule[0].MaxHours != 24 {
		t.Errorf("max hours = %d, timespan string should win", cfg.Reboot.Schedule[0].MaxHours)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "gap between timeframes",
			yaml: `
reboot:
  timeframes:
    - {min: 0h, max: 24h, reminder_interval: 1h}
    - {min: 30h, reminder_interval: 1h}
`,
			wantErr: "contiguous",
		},
		{
			name: "closed last timeframe",
			yaml: `
reboot:
  timeframes:
    - {min: 0h, max: 24h, reminder_interval: 1h}
`,
			wantErr: "open-ended",
		},
		{
			name: "bad quiet hours",
			yaml: `
notification:
  quiet_hours:
    enabled: true
    start_time: "25:99"
    end_time: "08:00"
`,
			wantErr: "HH:MM",
		},
		{
			name: "bad notification type",
			yaml: `
notification:
  type: carrier-pigeon
`,
			wantErr: "notification type",
		},
		{
			name: "bad timespan",
			yaml: `
service:
  check_interval: 5x
`,
			wantErr: "check_interval",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestQuietHoursDays(t *testing.T) {
	path := writeConfig(t, `
notification:
  quiet_hours:
    enabled: true
    start_time: "22:00"
    end_time: "08:00"
    days_of_week: [0, 6]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Notification.QuietHours.DaysOfWeek; len(got) != 2 || got[0] != 0 || got[1] != 6 {
		t.Errorf("days = %v", got)
	}
}
