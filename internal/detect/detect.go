// Package detect aggregates the probes that decide whether the machine
// has a reboot pending.
package detect

import (
	"errors"
	"log/slog"

	"rebootreminder/internal/config"
	"rebootreminder/internal/models"
)

// ErrUnsupported is returned by probes on platforms where the
// underlying mechanism does not exist.
var ErrUnsupported = errors.New("detection method not supported on this platform")

// Probe checks one reboot-pending mechanism. A Check returning
// (true, src, nil) contributes src as evidence; errors are logged by
// the aggregator and do not fail the cycle.
type Probe interface {
	Name() string
	Check() (bool, models.RebootSource, error)
}

// Detector runs a fixed set of probes and merges their verdicts.
type Detector struct {
	logger *slog.Logger
	probes []Probe
}

// New creates a detector over an explicit probe list, in order.
func New(logger *slog.Logger, probes ...Probe) *Detector {
	return &Detector{logger: logger, probes: probes}
}

// FromConfig creates a detector with the probes enabled in cfg. Probe
// order is fixed so source lists are stable across cycles.
func FromConfig(logger *slog.Logger, cfg config.DetectionMethodsConfig) *Detector {
	var probes []Probe
	if cfg.WindowsUpdate {
		probes = append(probes, windowsUpdateProbe{})
	}
	if cfg.SCCM {
		probes = append(probes, sccmProbe{})
	}
	if cfg.Registry {
		probes = append(probes, registryProbe{})
	}
	if cfg.PendingFileOperations {
		probes = append(probes, pendingFileOpsProbe{})
	}
	return New(logger, probes...)
}

// CheckRebootRequired runs every probe and returns whether any of them
// found a pending reboot, together with the evidence. A probe error is
// logged and the probe skipped; the remaining probes still run.
func (d *Detector) CheckRebootRequired() (bool, []models.RebootSource) {
	var sources []models.RebootSource

	for _, p := range d.probes {
		pending, src, err := p.Check()
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				d.logger.Debug("probe unsupported on this platform", "probe", p.Name())
			} else {
				d.logger.Warn("probe failed", "probe", p.Name(), "error", err)
			}
			continue
		}
		if pending {
			d.logger.Debug("probe detected pending reboot", "probe", p.Name(), "details", src.Details)
			sources = append(sources, src)
		}
	}

	return len(sources) > 0, sources
}
