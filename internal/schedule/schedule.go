// Package schedule maps elapsed reboot-pending time onto the configured
// escalation timeframes and computes reminder times.
package schedule

import (
	"time"

	"rebootreminder/internal/models"
)

// DefaultReminderInterval is used when a timeframe does not specify one.
const DefaultReminderInterval = time.Hour

// Timeframe is one escalation tier of the reminder schedule. Tiers are
// contiguous, non-overlapping and sorted ascending by MinHours; the last
// tier has MaxHours == 0, meaning open-ended.
type Timeframe struct {
	MinHours         int
	MaxHours         int
	ReminderInterval time.Duration
	Deferrals        []time.Duration
}

// contains reports whether the given elapsed hours fall in [min, max).
func (tf Timeframe) contains(hours int) bool {
	if hours < tf.MinHours {
		return false
	}
	return tf.MaxHours == 0 || hours < tf.MaxHours
}

// GetTimeframe selects the escalation tier for the given state, or nil
// when no reboot is required. Elapsed time is anchored on the earliest
// DetectedAt among the current sources, falling back to
// RebootRequiredSince when the source list is empty.
func GetTimeframe(table []Timeframe, state *models.RebootState, now time.Time) *Timeframe {
	if state == nil || !state.RebootRequired || len(table) == 0 {
		return nil
	}

	hours := elapsedHours(state, now)
	for i := range table {
		if table[i].contains(hours) {
			return &table[i]
		}
	}

	// A contiguous table always matches; fall back to the last tier in
	// case the configured table starts above zero.
	return &table[len(table)-1]
}

// NextReminderTime computes when the next reminder for the tier is due.
func NextReminderTime(tf *Timeframe, now time.Time) time.Time {
	interval := DefaultReminderInterval
	if tf != nil && tf.ReminderInterval > 0 {
		interval = tf.ReminderInterval
	}
	return now.Add(interval)
}

// DeferralOptions returns the deferral choices valid for the tier.
func DeferralOptions(tf *Timeframe) []time.Duration {
	if tf == nil {
		return nil
	}
	return tf.Deferrals
}

func elapsedHours(state *models.RebootState, now time.Time) int {
	var anchor time.Time
	for _, src := range state.Sources {
		if anchor.IsZero() || src.DetectedAt.Before(anchor) {
			anchor = src.DetectedAt
		}
	}
	if anchor.IsZero() && state.RebootRequiredSince != nil {
		anchor = *state.RebootRequiredSince
	}
	if anchor.IsZero() {
		return 0
	}

	hours := int(now.Sub(anchor).Hours())
	if hours < 0 {
		hours = 0
	}
	return hours
}
