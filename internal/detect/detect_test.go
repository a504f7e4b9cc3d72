package detect

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"rebootreminder/internal/config"
	"rebootreminder/internal/models"
)

type fakeProbe struct {
	name    string
	pending bool
	err     error
}

func (p fakeProbe) Name() string { return p.name }

func (p fakeProbe) Check() (bool, models.RebootSource, error) {
	if p.err != nil {
		return false, models.RebootSource{}, p.err
	}
	if !p.pending {
		return false, models.RebootSource{}, nil
	}
	return true, models.NewRebootSource(p.name, p.name+" pending", models.SeverityRequired), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestCheckRebootRequiredNonePending(t *testing.T) {
	d := New(testLogger(),
		fakeProbe{name: "windows_update"},
		fakeProbe{name: "sccm"},
	)
	pending, sources := d.CheckRebootRequired()
	if pending {
		t.Error("expected no pending reboot")
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
}

func TestCheckRebootRequiredOrOfProbes(t *testing.T) {
	d := New(testLogger(),
		fakeProbe{name: "windows_update"},
		fakeProbe{name: "sccm", pending: true},
		fakeProbe{name: "registry", pending: true},
	)
	pending, sources := d.CheckRebootRequired()
	if !pending {
		t.Fatal("expected pending reboot")
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	// Probe order is stable, so source order is too.
	if sources[0].Name != "sccm" || sources[1].Name != "registry" {
		t.Errorf("sources out of order: %s, %s", sources[0].Name, sources[1].Name)
	}
}

func TestCheckRebootRequiredSkipsFailedProbes(t *testing.T) {
	d := New(testLogger(),
		fakeProbe{name: "windows_update", err: errors.New("access denied")},
		fakeProbe{name: "sccm", err: ErrUnsupported},
		fakeProbe{name: "registry", pending: true},
	)
	pending, sources := d.CheckRebootRequired()
	if !pending {
		t.Fatal("probe errors must not mask other probes")
	}
	if len(sources) != 1 || sources[0].Name != "registry" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestFromConfigHonorsToggles(t *testing.T) {
	d := FromConfig(testLogger(), config.DetectionMethodsConfig{
		WindowsUpdate: true,
		Registry:      true,
	})
	if len(d.probes) != 2 {
		t.Fatalf("expected 2 probes, got %d", len(d.probes))
	}
	if d.probes[0].Name() != "windows_update" || d.probes[1].Name() != "registry" {
		t.Errorf("probes = %s, %s", d.probes[0].Name(), d.probes[1].Name())
	}

	if d := FromConfig(testLogger(), config.DetectionMethodsConfig{}); len(d.probes) != 0 {
		t.Errorf("expected no probes when all methods disabled, got %d", len(d.probes))
	}
}
