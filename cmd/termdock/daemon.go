package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/termdock/internal/config"
	"github.com/1broseidon/termdock/internal/daemon"
	"github.com/1broseidon/termdock/internal/dock"
	"github.com/1broseidon/termdock/internal/hotkeys"
	"github.com/1broseidon/termdock/internal/ipc"
	"github.com/1broseidon/termdock/internal/mainloop"
	"github.com/1broseidon/termdock/internal/platform"
	"github.com/1broseidon/termdock/internal/runtimepath"
	"github.com/1broseidon/termdock/internal/settings"
)

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "termdock daemon [--path PATH]", "Start the termdock daemon in the foreground.")
	path := fs.String("path", "", "Config file path (default: ~/.config/termdock/config.yaml)")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display, cfg.XAuthority, platform.Options{
		ScaleOverride: cfg.ScaleFactor,
		PanelClass:    cfg.Panel.Class,
		PanelCommand:  cfg.Panel.Command,
		SpawnTimeout:  cfg.SpawnTimeout(),
		Logger:        logger.With("component", "x11"),
	})
	if err != nil {
		log.Printf("Failed to connect to display: %v", err)
		return 1
	}

	settingsDir, err := settings.DefaultDir()
	if err != nil {
		log.Printf("Failed to resolve settings directory: %v", err)
		backend.Disconnect()
		return 1
	}
	store := settings.NewStore(settingsDir)
	side, err := store.LoadDockSide()
	if err != nil {
		logger.Debug("using default dock side", "error", err)
	}

	dockCfg := dock.NewConfig(cfg.WidthLimits(), cfg.Panel.DefaultWidth, side)
	loop := mainloop.New(0, logger.With("component", "mainloop"))
	engine := dock.NewEngine(dockCfg, backend, loop, dock.Options{
		Geometry:           cfg.Geometry(),
		Timing:             cfg.SchedulerTiming(),
		Store:              store,
		RestorePrimarySize: cfg.GetRestorePrimarySize(),
		Logger:             logger.With("component", "dock"),
	})

	watcher := daemon.NewWatcher(backend.Connection(), backend, engine, loop, logger.With("component", "watcher"))
	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval:     cfg.ScanInterval(),
		PrimaryClass: cfg.Primary.Class,
		PanelClass:   cfg.Panel.Class,
		Logger:       logger.With("component", "reconciler"),
	}, backend, engine, watcher, loop)

	socketPath, err := runtimepath.SocketPathForDisplay(cfg.Display)
	if err != nil {
		log.Printf("Failed to resolve IPC socket path: %v", err)
		backend.Disconnect()
		return 1
	}
	reloadChan := make(chan struct{}, 1)
	ipcServer, err := ipc.NewServer(ipc.ServerConfig{
		SocketPath: socketPath,
		ReloadChan: reloadChan,
		Logger:     logger.With("component", "ipc"),
	}, engine)
	if err != nil {
		log.Printf("Failed to create IPC server: %v", err)
		backend.Disconnect()
		return 1
	}

	if cfg.Hotkeys.ToggleSide != "" || cfg.Hotkeys.ToggleWidth != "" {
		hotkeyHandler := hotkeys.NewHandler(backend, logger.With("component", "hotkeys"))
		err := hotkeyHandler.Register(
			hotkeys.Bindings{ToggleSide: cfg.Hotkeys.ToggleSide, ToggleWidth: cfg.Hotkeys.ToggleWidth},
			func(ctx context.Context) (string, error) {
				side, err := engine.ToggleSide(ctx)
				return side.String(), err
			},
			engine.TogglePanelWidth,
		)
		if err != nil {
			logger.Warn("failed to register hotkeys", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)

	logger.Info("termdock daemon started",
		"dock_side", side,
		"panel_width", dockCfg.PanelWidth(),
		"primary_class", cfg.Primary.Class,
		"panel_class", cfg.Panel.Class)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return ipcServer.Run(gctx)
	})
	g.Go(func() error {
		return reconciler.Run(gctx)
	})
	g.Go(func() error {
		err := store.Watch(gctx, logger.With("component", "settings"), func(side dock.Side) {
			if engine.Config().Side() == side {
				return
			}
			logger.Info("dock side changed on disk", "side", side)
			if err := engine.ApplyDockSide(gctx, side); err != nil {
				logger.Warn("failed to apply dock side", "side", side, "error", err)
			}
		})
		if err != nil {
			// Live settings edits are optional; the daemon keeps running.
			logger.Warn("settings watcher stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hupCh:
				logger.Info("received SIGHUP, reloading config")
				cfg = reloadConfig(*path, cfg, level, logger)
			case <-reloadChan:
				logger.Info("reload requested over IPC")
				cfg = reloadConfig(*path, cfg, level, logger)
			}
		}
	})

	// xevent.Main has no clean exit; the process ends once the group stops.
	go backend.EventLoop()

	if err := g.Wait(); err != nil {
		logger.Error("daemon stopped with error", "error", err)
		return 1
	}
	logger.Info("termdock daemon stopped")
	return 0
}

// reloadConfig applies the settings that can change at runtime and reports
// the ones that need a restart. On error the current config is kept.
func reloadConfig(path string, current *config.Config, level *slog.LevelVar, logger *slog.Logger) *config.Config {
	res, err := loadConfig(path)
	if err != nil {
		logger.Warn("config reload failed", "error", err)
		return current
	}
	next := res.Config

	level.Set(next.SlogLevel())
	if changed := restartRequired(current, next); len(changed) > 0 {
		logger.Warn("config changes take effect after a restart", "keys", changed)
	}
	logger.Info("config reloaded", "log_level", next.LogLevel)
	return next
}

// restartRequired lists the top-level config keys that differ between two
// configs and are only read at startup.
func restartRequired(oldCfg, newCfg *config.Config) []string {
	var changed []string
	if oldCfg.Display != newCfg.Display {
		changed = append(changed, "display")
	}
	if oldCfg.XAuthority != newCfg.XAuthority {
		changed = append(changed, "xauthority")
	}
	if oldCfg.Primary != newCfg.Primary {
		changed = append(changed, "primary")
	}
	if oldCfg.Panel != newCfg.Panel {
		changed = append(changed, "panel")
	}
	if oldCfg.Timing != newCfg.Timing {
		changed = append(changed, "timing")
	}
	if oldCfg.Hotkeys != newCfg.Hotkeys {
		changed = append(changed, "hotkeys")
	}
	if oldCfg.ScaleFactor != newCfg.ScaleFactor {
		changed = append(changed, "scale_factor")
	}
	if oldCfg.GetRestorePrimarySize() != newCfg.GetRestorePrimarySize() {
		changed = append(changed, "restore_primary_size")
	}
	if oldCfg.ScanIntervalMS != newCfg.ScanIntervalMS {
		changed = append(changed, "scan_interval_ms")
	}
	if oldCfg.SpawnTimeoutMS != newCfg.SpawnTimeoutMS {
		changed = append(changed, "spawn_timeout_ms")
	}
	return changed
}
