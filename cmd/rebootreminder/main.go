package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"rebootreminder/internal/config"
	"rebootreminder/internal/detect"
	"rebootreminder/internal/engine"
	"rebootreminder/internal/models"
	"rebootreminder/internal/notify"
	"rebootreminder/internal/platform"
	"rebootreminder/internal/server"
	"rebootreminder/internal/storage"
	"rebootreminder/internal/watchdog"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "config.yaml", "path to configuration file (YAML)")
		addr       = pflag.String("addr", "", "address for the status API, overrides the config")
		debug      = pflag.BoolP("debug", "d", false, "enable debug logging")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, level, closeLog, err := newLogger(cfg.Logging, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	command := "run"
	if args := pflag.Args(); len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "run":
		err = runService(*configPath, cfg, logger, level)
	case "check":
		err = runCheck(cfg, logger)
	case "install":
		err = installService(cfg)
	case "uninstall":
		err = uninstallService(cfg)
	default:
		err = fmt.Errorf("unknown command %q (expected run, check, install or uninstall)", command)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig, debug bool) (*slog.Logger, *slog.LevelVar, func(), error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))
	if debug {
		level.Set(slog.LevelDebug)
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, level, closeLog, nil
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runService wires everything up and blocks until the process is told
// to stop, either by the service control manager or by a signal.
func runService(configPath string, cfg config.Config, logger *slog.Logger, level *slog.LevelVar) error {
	isService, err := platform.IsWindowsService()
	if err != nil {
		return fmt.Errorf("detect service context: %w", err)
	}
	if isService {
		return platform.RunAsService(cfg.Service.Name, func(stop <-chan struct{}) {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				<-stop
				cancel()
			}()
			if err := runUntil(ctx, configPath, cfg, logger, level); err != nil {
				logger.Error("service run failed", "error", err)
			}
		})
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	return runUntil(ctx, configPath, cfg, logger, level)
}

func runUntil(ctx context.Context, configPath string, cfg config.Config, logger *slog.Logger, level *slog.LevelVar) error {
	store, err := storage.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	manager := config.NewManager(configPath, cfg, logger)
	manager.OnReload(func(next config.Config) {
		level.Set(parseLevel(next.Logging.Level))
	})
	manager.Start()
	defer manager.Stop()

	detector := detect.FromConfig(logger, cfg.Reboot.DetectionMethods)

	sessions := platform.NewSessions(logger)
	trigger := platform.NewRebootTrigger(logger)
	channels := platform.NewChannels(logger, cfg.Notification.Branding.Title)
	coordinator := notify.New(manager, store, sessions, trigger, channels, logger)

	eng := engine.New(manager, store, detector, coordinator, logger)
	eng.UseBootClock(platform.NewBootClock())
	coordinator.BindPostponer(eng)

	eng.Start()
	defer eng.Stop()

	power := platform.NewPowerMonitor(logger)
	power.Start()
	defer power.Stop()

	if cfg.Watchdog.Enabled {
		svc := platform.NewServiceManager(cfg.Watchdog.ServiceName)
		if _, err := svc.IsRunning(); errors.Is(err, platform.ErrUnsupported) {
			logger.Info("watchdog disabled, no service manager on this platform")
		} else {
			dog := watchdog.New(cfg.Watchdog, svc, eng, power, logger)
			dog.Start()
			defer dog.Stop()
		}
	}

	logger.Info("reboot reminder started",
		"check_interval", cfg.Service.CheckEvery,
		"timeframes", len(cfg.Reboot.Schedule),
		"addr", cfg.Server.Addr)

	if cfg.Server.Addr == "" {
		<-ctx.Done()
		return nil
	}

	srv := server.New(cfg.Server.Addr, eng, store, coordinator, logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// runCheck executes one detection cycle and prints the verdict as JSON.
// Meant for interactive troubleshooting.
func runCheck(cfg config.Config, logger *slog.Logger) error {
	detector := detect.FromConfig(logger, cfg.Reboot.DetectionMethods)
	pending, sources := detector.CheckRebootRequired()

	verdict := struct {
		RebootRequired bool                  `json:"reboot_required"`
		Sources        []models.RebootSource `json:"sources"`
		LastBootTime   *time.Time            `json:"last_boot_time,omitempty"`
	}{
		RebootRequired: pending,
		Sources:        sources,
	}
	if bootTime, err := platform.NewBootClock().LastBootTime(); err == nil {
		verdict.LastBootTime = &bootTime
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(verdict)
}

func installService(cfg config.Config) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	svc := platform.NewServiceManager(cfg.Service.Name)
	if err := svc.Install(exePath, cfg.Service.DisplayName, cfg.Service.Description, "run"); err != nil {
		return err
	}
	fmt.Printf("Service %s installed\n", cfg.Service.Name)
	return nil
}

func uninstallService(cfg config.Config) error {
	svc := platform.NewServiceManager(cfg.Service.Name)
	if err := svc.Uninstall(); err != nil {
		return err
	}
	fmt.Printf("Service %s removed\n", cfg.Service.Name)
	return nil
}
