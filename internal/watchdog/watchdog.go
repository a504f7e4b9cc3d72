// Package watchdog supervises the reminder service: it restarts the
// service when it stops unexpectedly and forces a state check after the
// machine wakes from sleep.
package watchdog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rebootreminder/internal/config"
)

// ErrRestartExhausted is reported after the maximum number of restart
// attempts has been spent. The supervisor stops intervening but keeps
// the process alive.
var ErrRestartExhausted = errors.New("watchdog restart attempts exhausted")

// ServiceController starts and stops the supervised service.
type ServiceController interface {
	IsRunning() (bool, error)
	Start() error
	Stop() error
}

// Checker is poked when the supervisor suspects the service missed
// work, for example after a sleep/resume cycle.
type Checker interface {
	ForceCheck() error
}

// PowerEvents delivers resume notifications. Resume returns a channel
// that receives a value when the machine wakes from sleep.
type PowerEvents interface {
	Resume() <-chan time.Time
}

// Supervisor watches the service and restarts it within a bounded
// number of attempts.
type Supervisor struct {
	cfg     config.WatchdogConfig
	svc     ServiceController
	checker Checker
	power   PowerEvents
	logger  *slog.Logger

	// pollInterval is the wait between liveness polls during a restart.
	// Shortened in tests.
	pollInterval time.Duration

	mu       sync.Mutex
	attempts int
	lastErr  error

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a supervisor. power may be nil when no power event source
// is available.
func New(cfg config.WatchdogConfig, svc ServiceController, checker Checker, power PowerEvents, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		svc:          svc,
		checker:      checker,
		power:        power,
		logger:       logger,
		pollInterval: time.Second,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the supervision loop.
func (s *Supervisor) Start() {
	go s.loop()
}

// Stop terminates the loop and waits for it to exit.
func (s *Supervisor) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// Err returns the terminal error, if any. ErrRestartExhausted after the
// restart budget was spent.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Attempts returns how many restarts have been attempted.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Supervisor) loop() {
	defer close(s.doneCh)

	var resume <-chan time.Time
	if s.power != nil {
		resume = s.power.Resume()
	}

	interval := s.cfg.CheckEvery
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-s.stopCh:
			return

		case at := <-resume:
			// Resume triggers the full check immediately: a state probe
			// and a liveness probe, same as a regular tick.
			s.logger.Info("resume from sleep detected", "at", at)
			s.forceCheck()
			if done := s.check(); done {
				return
			}

		case now := <-ticker.C:
			// A tick arriving far later than scheduled means the machine
			// was asleep and the timer did not fire.
			if gap := now.Sub(lastTick); gap > 2*interval {
				s.logger.Info("missed watchdog ticks, forcing state check", "gap", gap)
				s.forceCheck()
			}
			lastTick = now

			if done := s.check(); done {
				return
			}
		}
	}
}

func (s *Supervisor) forceCheck() {
	if s.checker == nil {
		return
	}
	if err := s.checker.ForceCheck(); err != nil {
		s.logger.Error("forced check failed", "error", err)
	}
}

// check verifies liveness and restarts if needed. It returns true when
// the supervisor is done for good.
func (s *Supervisor) check() bool {
	running, err := s.svc.IsRunning()
	if err != nil {
		s.logger.Error("liveness probe failed", "service", s.cfg.ServiceName, "error", err)
		return false
	}
	if running {
		// A healthy observation clears the restart budget.
		s.mu.Lock()
		s.attempts = 0
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	if s.attempts >= s.cfg.MaxRestartAttempts {
		s.lastErr = ErrRestartExhausted
		s.mu.Unlock()
		s.logger.Error("service down and restart attempts exhausted",
			"service", s.cfg.ServiceName, "attempts", s.cfg.MaxRestartAttempts)
		return true
	}
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	s.logger.Warn("service not running, restarting",
		"service", s.cfg.ServiceName, "attempt", attempt, "max", s.cfg.MaxRestartAttempts)

	if err := s.restart(); err != nil {
		s.logger.Error("restart failed", "service", s.cfg.ServiceName, "attempt", attempt, "error", err)
	} else {
		s.logger.Info("service restarted", "service", s.cfg.ServiceName, "attempt", attempt)
	}

	// Back off after the attempt, before the next evaluation.
	if s.cfg.Delay > 0 {
		s.sleep(s.cfg.Delay)
	}
	return false
}

// restart stops the service, waits for it to settle, and starts it
// again. Each wait is interruptible so Stop never blocks long.
func (s *Supervisor) restart() error {
	if err := s.svc.Stop(); err != nil {
		s.logger.Debug("stop before restart failed", "error", err)
	}
	if err := s.awaitState(false); err != nil {
		return fmt.Errorf("service did not stop: %w", err)
	}

	if err := s.svc.Start(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	if err := s.awaitState(true); err != nil {
		return fmt.Errorf("service did not come up: %w", err)
	}
	return nil
}

func (s *Supervisor) awaitState(want bool) error {
	for i := 0; i < 30; i++ {
		running, err := s.svc.IsRunning()
		if err == nil && running == want {
			return nil
		}
		if !s.sleep(s.pollInterval) {
			return errors.New("supervisor stopping")
		}
	}
	return fmt.Errorf("timed out waiting for running=%v", want)
}

// sleep waits for d in short chunks, returning false if the supervisor
// is stopping.
func (s *Supervisor) sleep(d time.Duration) bool {
	for d > 0 {
		chunk := d
		if chunk > time.Second {
			chunk = time.Second
		}
		select {
		case <-s.stopCh:
			return false
		case <-time.After(chunk):
		}
		d -= chunk
	}
	return true
}
