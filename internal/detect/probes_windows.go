//go:build windows

package detect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"

	"rebootreminder/internal/models"
)

// keyExists reports whether an HKLM registry key is present.
func keyExists(path string) (bool, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open HKLM\\%s: %w", path, err)
	}
	key.Close()
	return true, nil
}

func windowsDir() string {
	if dir := os.Getenv("WINDIR"); dir != "" {
		return dir
	}
	return `C:\Windows`
}

// pendingRenameCount returns the number of entries in the session
// manager's rename queue.
func pendingRenameCount() (int, error) {
	const path = `SYSTEM\CurrentControlSet\Control\Session Manager`

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open HKLM\\%s: %w", path, err)
	}
	defer key.Close()

	ops, _, err := key.GetStringsValue("PendingFileRenameOperations")
	if errors.Is(err, registry.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read PendingFileRenameOperations: %w", err)
	}
	return len(ops), nil
}

// windowsUpdateProbe checks the marker key Windows Update sets when an
// installed update needs a reboot to complete.
type windowsUpdateProbe struct{}

func (windowsUpdateProbe) Name() string { return "windows_update" }

func (windowsUpdateProbe) Check() (bool, models.RebootSource, error) {
	const path = `SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\RebootRequired`

	exists, err := keyExists(path)
	if err != nil || !exists {
		return false, models.RebootSource{}, err
	}

	src := models.NewRebootSource("windows_update", "Windows Update requires a reboot", models.SeverityRequired)
	src.Details = "Windows Update registry key indicates a reboot is required"
	return true, src, nil
}

// sccmProbe checks the markers the Configuration Manager client leaves
// while it waits for a reboot: two registry flags and two on-disk
// marker files, any one of which counts.
type sccmProbe struct{}

func (sccmProbe) Name() string { return "sccm" }

func (sccmProbe) Check() (bool, models.RebootSource, error) {
	keys := []string{
		`SOFTWARE\Microsoft\CCM\ClientSDK\RebootPending`,
		`SOFTWARE\Microsoft\SMS\Mobile Client\Reboot Management\RebootData`,
	}
	for _, path := range keys {
		exists, err := keyExists(path)
		if err != nil {
			return false, models.RebootSource{}, err
		}
		if exists {
			src := models.NewRebootSource("sccm", "SCCM requires a reboot", models.SeverityRequired)
			src.Details = "SCCM registry key indicates a reboot is pending: " + path
			return true, src, nil
		}
	}

	files := []string{
		filepath.Join(windowsDir(), "CCM", "ClientCache", "SCNotify.exe.reboot"),
		filepath.Join(windowsDir(), "CCM", "CIStateStore", "Reboot"),
	}
	for _, marker := range files {
		if _, err := os.Stat(marker); err == nil {
			src := models.NewRebootSource("sccm", "SCCM requires a reboot", models.SeverityRequired)
			src.Details = "SCCM reboot file exists: " + marker
			return true, src, nil
		}
	}

	return false, models.RebootSource{}, nil
}

// registryProbe covers the servicing and rename markers not owned by
// Windows Update or SCCM.
type registryProbe struct{}

func (registryProbe) Name() string { return "registry" }

func (registryProbe) Check() (bool, models.RebootSource, error) {
	const cbs = `SOFTWARE\Microsoft\Windows\CurrentVersion\Component Based Servicing\RebootPending`

	exists, err := keyExists(cbs)
	if err != nil {
		return false, models.RebootSource{}, err
	}
	if exists {
		src := models.NewRebootSource("registry", "Registry indicates a reboot is required", models.SeverityRequired)
		src.Details = "Component Based Servicing registry key indicates a reboot is pending"
		return true, src, nil
	}

	renames, err := pendingRenameCount()
	if err != nil {
		return false, models.RebootSource{}, err
	}
	if renames > 0 {
		src := models.NewRebootSource("registry", "Registry indicates a reboot is required", models.SeverityRequired)
		src.Details = "Session Manager registry key indicates pending file rename operations"
		return true, src, nil
	}

	renamed, err := computerRenamePending()
	if err != nil {
		return false, models.RebootSource{}, err
	}
	if renamed {
		src := models.NewRebootSource("registry", "Registry indicates a reboot is required", models.SeverityRequired)
		src.Details = "Computer name change is pending"
		return true, src, nil
	}

	return false, models.RebootSource{}, nil
}

func computerRenamePending() (bool, error) {
	active, err := readComputerName(`SYSTEM\CurrentControlSet\Control\ComputerName\ActiveComputerName`)
	if err != nil {
		return false, err
	}
	pending, err := readComputerName(`SYSTEM\CurrentControlSet\Control\ComputerName\ComputerName`)
	if err != nil {
		return false, err
	}
	return active != "" && pending != "" && active != pending, nil
}

func readComputerName(path string) (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open HKLM\\%s: %w", path, err)
	}
	defer key.Close()

	name, _, err := key.GetStringValue("ComputerName")
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read HKLM\\%s\\ComputerName: %w", path, err)
	}
	return name, nil
}

// pendingFileOpsProbe checks the rename queue and the in-place upgrade
// staging directories.
type pendingFileOpsProbe struct{}

func (pendingFileOpsProbe) Name() string { return "pending_file_operations" }

func (pendingFileOpsProbe) Check() (bool, models.RebootSource, error) {
	renames, err := pendingRenameCount()
	if err != nil {
		return false, models.RebootSource{}, err
	}
	if renames > 0 {
		src := models.NewRebootSource("pending_file_operations", "Pending file operations require a reboot", models.SeverityRequired)
		src.Details = "Pending file rename operations detected"
		return true, src, nil
	}

	for _, dir := range []string{"Windows.~BT", "Windows.~WS"} {
		full := filepath.Join(windowsDir(), dir)
		if info, err := os.Stat(full); err == nil && info.IsDir() {
			src := models.NewRebootSource("pending_file_operations", "Pending file operations require a reboot", models.SeverityRequired)
			src.Details = dir + " directory exists, indicating a pending Windows upgrade"
			return true, src, nil
		}
	}

	return false, models.RebootSource{}, nil
}
