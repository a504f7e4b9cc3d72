package platform

import (
	"log/slog"
	"time"
)

const (
	powerSampleInterval = 5 * time.Second
	powerGapThreshold   = 30 * time.Second
)

// PowerMonitor detects sleep/resume cycles by watching for gaps in
// wall-clock time. Timers do not fire while the machine sleeps, so a
// sample arriving much later than scheduled means the machine was
// suspended in between.
type PowerMonitor struct {
	logger    *slog.Logger
	sample    time.Duration
	threshold time.Duration

	last   time.Time
	resume chan time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewPowerMonitor creates a monitor with default sampling.
func NewPowerMonitor(logger *slog.Logger) *PowerMonitor {
	return &PowerMonitor{
		logger:    logger,
		sample:    powerSampleInterval,
		threshold: powerGapThreshold,
		resume:    make(chan time.Time, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Resume returns the channel that receives a value after each detected
// wake from sleep.
func (m *PowerMonitor) Resume() <-chan time.Time {
	return m.resume
}

// Start launches the sampling loop.
func (m *PowerMonitor) Start() {
	go m.loop()
}

// Stop terminates the loop and waits for it to exit.
func (m *PowerMonitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *PowerMonitor) loop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.sample)
	defer ticker.Stop()

	m.last = time.Now()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.observe(now)
		}
	}
}

// observe compares a sample against the previous one and emits a resume
// event when the gap is too large to be scheduling jitter.
func (m *PowerMonitor) observe(now time.Time) {
	if gap := now.Sub(m.last); gap > m.sample+m.threshold {
		m.logger.Info("wake from sleep detected", "gap", gap)
		select {
		case m.resume <- now:
		default:
			// A pending resume event has not been consumed yet.
		}
	}
	m.last = now
}
