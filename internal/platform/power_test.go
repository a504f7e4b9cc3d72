package platform

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func testMonitor() *PowerMonitor {
	return NewPowerMonitor(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestObserveDetectsGap(t *testing.T) {
	m := testMonitor()
	base := time.Now()
	m.last = base

	m.observe(base.Add(2 * time.Minute))

	select {
	case at := <-m.Resume():
		if !at.Equal(base.Add(2 * time.Minute)) {
			t.Errorf("resume at %v", at)
		}
	default:
		t.Fatal("expected a resume event after a 2m gap")
	}
}

func TestObserveIgnoresNormalTicks(t *testing.T) {
	m := testMonitor()
	base := time.Now()
	m.last = base

	// Within sample+threshold, no event.
	m.observe(base.Add(m.sample + m.threshold))

	select {
	case at := <-m.Resume():
		t.Errorf("unexpected resume event at %v", at)
	default:
	}
}

func TestObserveDoesNotBlockWhenUnconsumed(t *testing.T) {
	m := testMonitor()
	base := time.Now()
	m.last = base

	// Two gaps in a row with nobody reading must not block.
	m.observe(base.Add(5 * time.Minute))
	m.observe(base.Add(10 * time.Minute))

	if got := len(m.resume); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}

func TestStartStop(t *testing.T) {
	m := testMonitor()
	m.sample = 10 * time.Millisecond
	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
}
