// Package engine runs the periodic detection cycle and owns the reboot
// state machine. The engine is the only writer of the persisted state.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rebootreminder/internal/config"
	"rebootreminder/internal/models"
	"rebootreminder/internal/schedule"
)

// Store is the persistence surface the engine needs.
type Store interface {
	CurrentState() (*models.RebootState, bool)
	SaveState(*models.RebootState) error
	AppendHistory(models.RebootHistory) error
}

// Detector reports whether a reboot is pending and the evidence for it.
type Detector interface {
	CheckRebootRequired() (bool, []models.RebootSource)
}

// Notifier surfaces reminders to the user. ShowReminder returning nil
// means the reminder was handled, including the case where it was
// deliberately suppressed.
type Notifier interface {
	ShowReminder(kind, message, action string, deferrals []time.Duration) error
	UpdateStatus(message string)
}

// BootClock reports when the machine last booted. Optional; used to
// tell an actual reboot apart from sources resolving on their own.
type BootClock interface {
	LastBootTime() (time.Time, error)
}

// Engine drives detection cycles and maintains the reboot state.
type Engine struct {
	cfg    *config.Manager
	store  Store
	detect Detector
	notify Notifier
	boot   BootClock
	logger *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an engine. The notifier may be nil, in which case cycles
// still run and persist state but no reminders are surfaced.
func New(cfg *config.Manager, store Store, detect Detector, notify Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		detect: detect,
		notify: notify,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// UseBootClock wires a boot time source. Must be called before Start.
func (e *Engine) UseBootClock(bc BootClock) {
	e.boot = bc
}

// Start launches the periodic check loop. An initial cycle runs
// immediately so state is fresh right after service start.
func (e *Engine) Start() {
	go e.loop()
}

// Stop terminates the loop and waits for the in-flight cycle to finish.
func (e *Engine) Stop() {
	close(e.stopCh)
	<-e.doneCh
}

func (e *Engine) loop() {
	defer close(e.doneCh)

	if err := e.RunOnce(time.Now().UTC()); err != nil {
		e.logger.Error("check cycle failed", "error", err)
	}

	interval := e.cfg.Get().Service.CheckEvery
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.RunOnce(time.Now().UTC()); err != nil {
				e.logger.Error("check cycle failed", "error", err)
			}
			// The interval may have changed on a config reload.
			if next := e.cfg.Get().Service.CheckEvery; next != interval && next > 0 {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// RunOnce executes a single detection cycle at the given time: probe,
// apply state transitions, persist, and surface a reminder when due.
func (e *Engine) RunOnce(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.cfg.Get()
	pending, sources := e.detect.CheckRebootRequired()

	state, ok := e.store.CurrentState()
	if !ok {
		state = models.NewRebootState(false, false)
	}
	var observed *models.RebootHistory

	required, recommended := classify(sources)
	wasRequired := state.RebootRequired

	// The probe evidence replaces last cycle's evidence wholesale.
	state.Sources = sources
	state.RebootRequired = required
	state.RebootRecommended = recommended
	state.LastCheckTime = now
	state.UpdatedAt = now

	switch {
	case required && !wasRequired:
		since := now
		state.RebootRequiredSince = &since
		state.RebootReason = rebootReason(sources)
		e.logger.Info("reboot now required", "reason", state.RebootReason, "sources", len(sources))

	case !required && wasRequired:
		// The pending reboot cleared: either the machine rebooted or
		// the sources resolved themselves. The boot clock tells the two
		// apart; without one, assume a reboot happened.
		rebootTime, rebooted := e.rebootObserved(state, now)

		state.RebootRequiredSince = nil
		state.NextReminderTime = nil
		state.PostponeCount = 0
		state.RebootReason = ""
		e.logger.Info("pending reboot cleared", "rebooted", rebooted)

		if rebooted {
			state.LastRebootTime = &rebootTime
			h := models.NewRebootHistory(rebootTime, true)
			observed = &h
		}

	case required:
		state.RebootReason = rebootReason(sources)
	}

	if err := e.store.SaveState(state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	// History is stamped only once the state write consumed the flip.
	// The other order would append a duplicate record when the save
	// fails and the next cycle sees the flip again.
	if observed != nil {
		if err := e.store.AppendHistory(*observed); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}

	if e.notify != nil {
		e.notify.UpdateStatus(statusLine(state, cfg))
	}

	if !pending || e.notify == nil {
		return nil
	}
	if state.NextReminderTime != nil && now.Before(*state.NextReminderTime) {
		return nil
	}

	var (
		tf        *schedule.Timeframe
		kind      string
		message   string
		action    string
		deferrals []time.Duration
	)
	switch {
	case required:
		tf = schedule.GetTimeframe(cfg.Reboot.Schedule, state, now)
		kind = "reboot_required"
		message = cfg.Notification.Messages.RebootRequired
		action = cfg.Notification.Messages.ActionRequired
		if cfg.Reboot.SystemReboot.Enabled {
			action = "reboot:now"
		}
		deferrals = schedule.DeferralOptions(tf)
	case recommended:
		kind = "reboot_recommended"
		message = cfg.Notification.Messages.RebootRecommended
		action = cfg.Notification.Messages.ActionRecommended
	default:
		return nil
	}

	if err := e.notify.ShowReminder(kind, message, action, deferrals); err != nil {
		e.logger.Error("reminder failed", "error", err)
		return nil
	}

	next := schedule.NextReminderTime(tf, now)
	state.NextReminderTime = &next
	state.UpdatedAt = now
	if err := e.store.SaveState(state); err != nil {
		return fmt.Errorf("save reminder time: %w", err)
	}
	return nil
}

// Postpone pushes the next reminder out by d and counts the deferral.
// Safe to call concurrently with the check loop.
func (e *Engine) Postpone(d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.store.CurrentState()
	if !ok {
		return fmt.Errorf("no state to postpone")
	}

	now := time.Now().UTC()
	next := now.Add(d)
	state.PostponeCount++
	state.NextReminderTime = &next
	state.UpdatedAt = now

	if err := e.store.SaveState(state); err != nil {
		return fmt.Errorf("save postponed state: %w", err)
	}
	e.logger.Info("reminder postponed", "until", next, "count", state.PostponeCount)
	return nil
}

// ForceCheck runs a detection cycle immediately, outside the regular
// schedule. Used after wake from sleep and by the status endpoint.
func (e *Engine) ForceCheck() error {
	return e.RunOnce(time.Now().UTC())
}

// Snapshot returns a copy of the current state for read-only use.
func (e *Engine) Snapshot() (*models.RebootState, bool) {
	return e.store.CurrentState()
}

// rebootObserved decides whether the cleared state was caused by an
// actual reboot. A boot time newer than the start of the episode means
// the machine restarted in between.
func (e *Engine) rebootObserved(state *models.RebootState, now time.Time) (time.Time, bool) {
	if e.boot == nil {
		return now, true
	}
	bootTime, err := e.boot.LastBootTime()
	if err != nil {
		e.logger.Debug("boot time unavailable, assuming reboot", "error", err)
		return now, true
	}
	if state.RebootRequiredSince != nil && bootTime.After(*state.RebootRequiredSince) {
		return bootTime, true
	}
	return now, false
}

func classify(sources []models.RebootSource) (required, recommended bool) {
	for _, src := range sources {
		switch src.Severity {
		case models.SeverityRequired:
			required = true
		case models.SeverityRecommended:
			recommended = true
		}
	}
	return required, recommended
}

func rebootReason(sources []models.RebootSource) string {
	for _, src := range sources {
		if src.Severity == models.SeverityRequired {
			return src.Description
		}
	}
	if len(sources) > 0 {
		return sources[0].Description
	}
	return ""
}

func statusLine(state *models.RebootState, cfg config.Config) string {
	switch {
	case state.RebootRequired:
		return cfg.Notification.Messages.ActionRequired
	case state.RebootRecommended:
		return cfg.Notification.Messages.ActionRecommended
	default:
		return "No reboot required"
	}
}
