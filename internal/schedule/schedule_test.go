package schedule

import (
	"testing"
	"time"

	"rebootreminder/internal/models"
)

func testTable() []Timeframe {
	return []Timeframe{
		{MinHours: 0, MaxHours: 24, ReminderInterval: 8 * time.Hour, Deferrals: []time.Duration{8 * time.Hour}},
		{MinHours: 24, MaxHours: 48, ReminderInterval: 4 * time.Hour, Deferrals: []time.Duration{time.Hour, 4 * time.Hour}},
		{MinHours: 48, ReminderInterval: time.Hour, Deferrals: []time.Duration{time.Hour}},
	}
}

func stateRequiredSince(now time.Time, elapsed time.Duration) *models.RebootState {
	since := now.Add(-elapsed)
	src := models.NewRebootSource("windows_update", "Windows Update requires a reboot", models.SeverityRequired)
	src.DetectedAt = since
	return &models.RebootState{
		RebootRequired:      true,
		RebootRequiredSince: &since,
		Sources:             []models.RebootSource{src},
	}
}

func TestGetTimeframeNoRebootRequired(t *testing.T) {
	now := time.Now().UTC()
	state := &models.RebootState{RebootRequired: false}
	if tf := GetTimeframe(testTable(), state, now); tf != nil {
		t.Fatalf("expected nil timeframe when no reboot required, got %+v", tf)
	}
}

func TestGetTimeframeContainsElapsed(t *testing.T) {
	now := time.Now().UTC()
	table := testTable()
	for _, hours := range []int{0, 1, 23, 24, 30, 47, 48, 100, 10000} {
		state := stateRequiredSince(now, time.Duration(hours)*time.Hour)
		tf := GetTimeframe(table, state, now)
		if tf == nil {
			t.Fatalf("hours=%d: expected a timeframe", hours)
		}
		if hours < tf.MinHours || (tf.MaxHours != 0 && hours >= tf.MaxHours) {
			t.Errorf("hours=%d: selected tier [%d,%d) does not contain elapsed", hours, tf.MinHours, tf.MaxHours)
		}
	}
}

func TestGetTimeframeAnchorsOnEarliestSource(t *testing.T) {
	now := time.Now().UTC()

	// RequiredSince says 2 hours ago, but the oldest source was detected
	// 30 hours ago; the source anchor wins.
	since := now.Add(-2 * time.Hour)
	old := models.NewRebootSource("sccm", "SCCM requires a reboot", models.SeverityRequired)
	old.DetectedAt = now.Add(-30 * time.Hour)
	fresh := models.NewRebootSource("registry", "Registry indicates a reboot is required", models.SeverityRequired)
	fresh.DetectedAt = now.Add(-time.Hour)

	state := &models.RebootState{
		RebootRequired:      true,
		RebootRequiredSince: &since,
		Sources:             []models.RebootSource{fresh, old},
	}

	tf := GetTimeframe(testTable(), state, now)
	if tf == nil || tf.MinHours != 24 {
		t.Fatalf("expected 24h tier from 30h-old source, got %+v", tf)
	}
}

func TestGetTimeframeFallsBackToRequiredSince(t *testing.T) {
	now := time.Now().UTC()
	since := now.Add(-50 * time.Hour)
	state := &models.RebootState{RebootRequired: true, RebootRequiredSince: &since}

	tf := GetTimeframe(testTable(), state, now)
	if tf == nil || tf.MinHours != 48 {
		t.Fatalf("expected open-ended tier, got %+v", tf)
	}
}

func TestNextReminderTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tf := &Timeframe{ReminderInterval: 4 * time.Hour}
	if got, want := NextReminderTime(tf, now), now.Add(4*time.Hour); !got.Equal(want) {
		t.Errorf("NextReminderTime = %v, want %v", got, want)
	}

	// A tier without an interval defaults to one hour.
	if got, want := NextReminderTime(&Timeframe{}, now), now.Add(time.Hour); !got.Equal(want) {
		t.Errorf("default NextReminderTime = %v, want %v", got, want)
	}
}

func TestEscalationExample(t *testing.T) {
	// 30 hours elapsed must land in the {min:24,max:48} tier with a 4h
	// reminder interval and deferral options of exactly 1h and 4h.
	now := time.Now().UTC()
	state := stateRequiredSince(now, 30*time.Hour)

	tf := GetTimeframe(testTable(), state, now)
	if tf == nil {
		t.Fatal("expected a timeframe")
	}
	if tf.MinHours != 24 || tf.MaxHours != 48 {
		t.Fatalf("selected tier [%d,%d), want [24,48)", tf.MinHours, tf.MaxHours)
	}
	if got, want := NextReminderTime(tf, now), now.Add(4*time.Hour); !got.Equal(want) {
		t.Errorf("next reminder = %v, want %v", got, want)
	}
	opts := DeferralOptions(tf)
	if len(opts) != 2 || opts[0] != time.Hour || opts[1] != 4*time.Hour {
		t.Errorf("deferral options = %v, want [1h 4h]", opts)
	}
}
