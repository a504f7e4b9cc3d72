//go:build !windows

package platform

// ServiceManager is a stub; there is no service control manager here.
type ServiceManager struct {
	name string
}

// NewServiceManager creates a controller for the named service.
func NewServiceManager(name string) *ServiceManager {
	return &ServiceManager{name: name}
}

func (m *ServiceManager) IsRunning() (bool, error) { return false, ErrUnsupported }
func (m *ServiceManager) Start() error             { return ErrUnsupported }
func (m *ServiceManager) Stop() error              { return ErrUnsupported }

func (m *ServiceManager) Install(exePath, displayName, description string, args ...string) error {
	return ErrUnsupported
}

func (m *ServiceManager) Uninstall() error { return ErrUnsupported }

// IsWindowsService always reports false off Windows.
func IsWindowsService() (bool, error) { return false, nil }

// RunAsService cannot work without a service control manager.
func RunAsService(name string, run func(stop <-chan struct{})) error {
	return ErrUnsupported
}
