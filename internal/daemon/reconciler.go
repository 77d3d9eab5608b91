package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/termdock/internal/dock"
	"github.com/1broseidon/termdock/internal/platform"
)

// Lifecycle is the part of the dock engine the reconciler drives.
type Lifecycle interface {
	OnAppReady()
	OnPanelCreated()
	OnPrimaryDestroyed()
}

// Binder subscribes to events of bound windows.
type Binder interface {
	Watch(name dock.WindowName, id platform.WindowID) error
	Unwatch(name dock.WindowName)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// PrimaryClass selects the primary window by WM_CLASS. When empty the
	// active window is adopted.
	PrimaryClass string
	PanelClass   string
	Logger       *slog.Logger
}

// Reconciler periodically binds the primary and panel windows and notices
// when they disappear without a destroy event.
type Reconciler struct {
	interval     time.Duration
	primaryClass string
	panelClass   string
	backend      platform.Backend
	lifecycle    Lifecycle
	binder       Binder
	exec         dock.Executor
	logger       *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
// Passes run on exec so they never race the dock engine.
func NewReconciler(cfg ReconcilerConfig, backend platform.Backend, lifecycle Lifecycle, binder Binder, exec dock.Executor) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:     interval,
		primaryClass: cfg.PrimaryClass,
		panelClass:   cfg.PanelClass,
		backend:      backend,
		lifecycle:    lifecycle,
		binder:       binder,
		exec:         exec,
		logger:       logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)
	r.exec.Post(r.reconcile)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return nil
		case <-ticker.C:
			r.exec.Post(r.reconcile)
		}
	}
}

// ReconcileNow runs a pass on the executor and waits for it.
func (r *Reconciler) ReconcileNow(ctx context.Context) error {
	return r.exec.Do(ctx, r.reconcile)
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	r.reconcilePrimary()
	r.reconcilePanel()
}

func (r *Reconciler) reconcilePrimary() {
	if id, ok := r.backend.Window(dock.Primary); ok {
		if r.backend.Exists(dock.Primary) {
			r.watch(dock.Primary, id)
			return
		}
		r.logger.Info("reconciler: primary window gone", "window_id", id)
		r.binder.Unwatch(dock.Primary)
		r.backend.Unbind(dock.Primary)
		r.lifecycle.OnPrimaryDestroyed()
		return
	}

	id, ok := r.findPrimary()
	if !ok {
		return
	}
	r.backend.Bind(dock.Primary, id)
	r.watch(dock.Primary, id)
	r.logger.Info("primary window attached", "window_id", id)
	r.lifecycle.OnAppReady()
}

func (r *Reconciler) findPrimary() (platform.WindowID, bool) {
	if r.primaryClass != "" {
		id, ok, err := r.backend.FindByClass(r.primaryClass)
		if err != nil {
			r.logger.Debug("reconciler: primary lookup failed", "class", r.primaryClass, "error", err)
			return 0, false
		}
		return id, ok
	}

	id, err := r.backend.ActiveWindow()
	if err != nil || id == 0 {
		return 0, false
	}
	if panel, ok := r.backend.Window(dock.Panel); ok && panel == id {
		return 0, false
	}
	if r.panelClass != "" {
		if panel, ok, err := r.backend.FindByClass(r.panelClass); err == nil && ok && panel == id {
			return 0, false
		}
	}
	if !r.backend.IsNormalWindow(id) {
		return 0, false
	}
	return id, true
}

func (r *Reconciler) reconcilePanel() {
	if id, ok := r.backend.Window(dock.Panel); ok {
		if r.backend.Exists(dock.Panel) {
			r.watch(dock.Panel, id)
			return
		}
		r.logger.Info("reconciler: panel window gone", "window_id", id)
		r.binder.Unwatch(dock.Panel)
		r.backend.Unbind(dock.Panel)
	}

	if r.panelClass == "" {
		return
	}
	id, ok, err := r.backend.FindByClass(r.panelClass)
	if err != nil || !ok {
		return
	}
	if primary, bound := r.backend.Window(dock.Primary); bound && primary == id {
		return
	}
	r.backend.Bind(dock.Panel, id)
	r.watch(dock.Panel, id)
	r.logger.Info("panel window adopted", "window_id", id)
	r.lifecycle.OnPanelCreated()
}

func (r *Reconciler) watch(name dock.WindowName, id platform.WindowID) {
	if err := r.binder.Watch(name, id); err != nil {
		r.logger.Warn("reconciler: failed to watch window", "name", name, "window_id", id, "error", err)
	}
}
