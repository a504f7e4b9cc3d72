//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// ServiceManager controls a Windows service by name through the
// service control manager.
type ServiceManager struct {
	name string
}

// NewServiceManager creates a controller for the named service.
func NewServiceManager(name string) *ServiceManager {
	return &ServiceManager{name: name}
}

func (m *ServiceManager) withService(fn func(*mgr.Service) error) error {
	conn, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer conn.Disconnect()

	s, err := conn.OpenService(m.name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", m.name, err)
	}
	defer s.Close()

	return fn(s)
}

// IsRunning reports whether the service is in the running state.
func (m *ServiceManager) IsRunning() (bool, error) {
	var running bool
	err := m.withService(func(s *mgr.Service) error {
		status, err := s.Query()
		if err != nil {
			return fmt.Errorf("query service %s: %w", m.name, err)
		}
		running = status.State == svc.Running
		return nil
	})
	return running, err
}

// Start starts the service.
func (m *ServiceManager) Start() error {
	return m.withService(func(s *mgr.Service) error {
		if err := s.Start(); err != nil {
			return fmt.Errorf("start service %s: %w", m.name, err)
		}
		return nil
	})
}

// Stop sends the stop control. The service may take a while to reach
// the stopped state; callers poll IsRunning.
func (m *ServiceManager) Stop() error {
	return m.withService(func(s *mgr.Service) error {
		if _, err := s.Control(svc.Stop); err != nil {
			return fmt.Errorf("stop service %s: %w", m.name, err)
		}
		return nil
	})
}

// Install registers the service with automatic start.
func (m *ServiceManager) Install(exePath, displayName, description string, args ...string) error {
	conn, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer conn.Disconnect()

	if s, err := conn.OpenService(m.name); err == nil {
		s.Close()
		return fmt.Errorf("service %s already installed", m.name)
	}

	s, err := conn.CreateService(m.name, exePath, mgr.Config{
		StartType:   mgr.StartAutomatic,
		DisplayName: displayName,
		Description: description,
	}, args...)
	if err != nil {
		return fmt.Errorf("create service %s: %w", m.name, err)
	}
	defer s.Close()
	return nil
}

// Uninstall removes the service registration.
func (m *ServiceManager) Uninstall() error {
	return m.withService(func(s *mgr.Service) error {
		if err := s.Delete(); err != nil {
			return fmt.Errorf("delete service %s: %w", m.name, err)
		}
		return nil
	})
}

// IsWindowsService reports whether the process was started by the
// service control manager.
func IsWindowsService() (bool, error) {
	return svc.IsWindowsService()
}

type serviceHandler struct {
	run func(stop <-chan struct{})
}

func (h *serviceHandler) Execute(args []string, requests <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.run(stop)
	}()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case c := <-requests:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				close(stop)
				<-done
				return false, 0
			}
		case <-done:
			return false, 0
		}
	}
}

// RunAsService hands control to the service dispatcher. run is invoked
// once the service enters the running state and must return when stop
// closes.
func RunAsService(name string, run func(stop <-chan struct{})) error {
	return svc.Run(name, &serviceHandler{run: run})
}
