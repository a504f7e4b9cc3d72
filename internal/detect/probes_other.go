//go:build !windows

package detect

import "rebootreminder/internal/models"

// The probes query Windows-only state. On other platforms they report
// ErrUnsupported, which the aggregator logs at debug and skips.

type windowsUpdateProbe struct{}

func (windowsUpdateProbe) Name() string { return "windows_update" }

func (windowsUpdateProbe) Check() (bool, models.RebootSource, error) {
	return false, models.RebootSource{}, ErrUnsupported
}

type sccmProbe struct{}

func (sccmProbe) Name() string { return "sccm" }

func (sccmProbe) Check() (bool, models.RebootSource, error) {
	return false, models.RebootSource{}, ErrUnsupported
}

type registryProbe struct{}

func (registryProbe) Name() string { return "registry" }

func (registryProbe) Check() (bool, models.RebootSource, error) {
	return false, models.RebootSource{}, ErrUnsupported
}

type pendingFileOpsProbe struct{}

func (pendingFileOpsProbe) Name() string { return "pending_file_operations" }

func (pendingFileOpsProbe) Check() (bool, models.RebootSource, error) {
	return false, models.RebootSource{}, ErrUnsupported
}
