package dock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fallback primary size in logical pixels, used to place a panel created
// before the primary window has been laid out.
const (
	FallbackPrimaryWidth  = 375
	FallbackPrimaryHeight = 450
)

// WindowSize is a persisted window size in logical pixels.
type WindowSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Store persists the dock side and the primary window size across runs.
type Store interface {
	SaveDockSide(side Side) error
	LoadWindowSize() (WindowSize, bool)
	SaveWindowSize(size WindowSize) error
}

// Options configures an Engine.
type Options struct {
	Geometry Geometry
	Timing   Timing
	Clock    Clock
	// Store is optional; without it nothing is persisted.
	Store Store
	// RestorePrimarySize resizes the primary to its persisted size when it
	// is attached.
	RestorePrimarySize bool
	Logger             *slog.Logger
}

// Status is a read-only view of the engine state.
type Status struct {
	Side             Side
	PanelWidth       int
	PrimaryAttached  bool
	PanelPresent     bool
	MoveGeneration   uint64
	ResizeGeneration uint64
	LastSync         time.Duration
	Synced           bool
}

// Engine keeps the panel window docked to the primary window. Lifecycle hooks
// may be called from any goroutine; every window call is marshalled onto the
// Executor.
type Engine struct {
	cfg      *Config
	geom     Geometry
	provider Provider
	exec     Executor
	applier  *Applier
	sched    *Scheduler
	store    Store
	restore  bool
	logger   *slog.Logger
}

// NewEngine wires a docking engine around cfg.
func NewEngine(cfg *Config, provider Provider, exec Executor, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:      cfg,
		geom:     opts.Geometry,
		provider: provider,
		exec:     exec,
		applier:  NewApplier(provider, logger),
		store:    opts.Store,
		restore:  opts.RestorePrimarySize,
		logger:   logger,
	}
	e.sched = NewScheduler(opts.Timing, opts.Clock, exec, func(raise bool) {
		_ = e.syncNow(raise)
	})
	return e
}

// Config returns the live dock configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// OnPrimaryMoved is called by the windowing layer for every primary move.
func (e *Engine) OnPrimaryMoved() {
	e.sched.Moved()
}

// OnPrimaryResized is called by the windowing layer for every primary resize.
// The new size is persisted on every event so a restart restores it.
func (e *Engine) OnPrimaryResized() {
	if !e.sched.Active() {
		return
	}
	if e.store != nil {
		e.exec.Post(e.persistPrimarySize)
	}
	e.sched.Resized()
}

// OnPrimaryDestroyed closes the panel. No further syncs happen until a new
// primary window is attached with OnAppReady.
func (e *Engine) OnPrimaryDestroyed() {
	e.sched.Stop()
	e.exec.Post(func() {
		if !e.provider.Exists(Panel) {
			return
		}
		if err := e.provider.Close(Panel); err != nil {
			e.logger.Debug("closing panel failed", "error", err)
		}
	})
	e.logger.Info("primary window destroyed, panel closed")
}

// OnAppReady attaches a primary window: the persisted primary size is
// restored, the panel is created if missing and a full sync runs.
func (e *Engine) OnAppReady() {
	e.sched.Start()
	e.exec.Post(func() {
		e.restorePrimarySize()
		if err := e.ensurePanel(); err != nil {
			e.logPanelCreate(err)
		}
		_ = e.syncNow(true)
	})
}

// OnPanelCreated is called when the panel window appears for the first time.
func (e *Engine) OnPanelCreated() {
	e.sched.Immediate(true)
}

// SetPanelWidth clamps and stores the panel width, then syncs immediately
// without throttling. It returns the stored width.
func (e *Engine) SetPanelWidth(ctx context.Context, width int) (int, error) {
	stored := e.cfg.SetPanelWidth(width)
	e.logger.Debug("panel width set", "requested", width, "stored", stored)
	err := e.exec.Do(ctx, func() {
		_ = e.syncNow(true)
	})
	return stored, err
}

// SetDockSide parses raw and applies it with ApplyDockSide. Unrecognised
// values dock left.
func (e *Engine) SetDockSide(ctx context.Context, raw string) (Side, error) {
	side, ok := ParseSide(raw)
	if !ok {
		e.logger.Warn("unknown dock side, using left", "value", raw)
	}
	return side, e.ApplyDockSide(ctx, side)
}

// ApplyDockSide stores and persists side, creates the panel if it does not
// exist yet and syncs immediately. The whole step runs on the main context,
// so the live side and the persisted side always end up equal.
func (e *Engine) ApplyDockSide(ctx context.Context, side Side) error {
	return e.exec.Do(ctx, func() {
		e.applyDockSide(side)
	})
}

// ToggleSide flips the dock side.
func (e *Engine) ToggleSide(ctx context.Context) (Side, error) {
	var side Side
	err := e.exec.Do(ctx, func() {
		side = e.cfg.Side().Opposite()
		e.applyDockSide(side)
	})
	return side, err
}

func (e *Engine) applyDockSide(side Side) {
	e.cfg.SetSide(side)
	if e.store != nil {
		if err := e.store.SaveDockSide(side); err != nil {
			e.logger.Warn("persisting dock side failed", "side", side, "error", err)
		}
	}
	e.logger.Info("dock side set", "side", side)
	if err := e.ensurePanel(); err != nil {
		e.logPanelCreate(err)
		return
	}
	_ = e.syncNow(true)
}

// TogglePanelWidth switches between the collapsed (minimum) and expanded
// (maximum) panel width.
func (e *Engine) TogglePanelWidth(ctx context.Context) (int, error) {
	limits := e.cfg.Limits()
	next := limits.Max
	if e.cfg.PanelWidth() > limits.Min {
		next = limits.Min
	}
	return e.SetPanelWidth(ctx, next)
}

// Resync forces a full sync.
func (e *Engine) Resync(ctx context.Context) error {
	var err error
	if doErr := e.exec.Do(ctx, func() {
		err = e.syncNow(true)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Status reports the engine state.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	settings := e.cfg.Snapshot()
	moved, resized := e.sched.Generations()
	st := Status{
		Side:             settings.Side,
		PanelWidth:       settings.PanelWidth,
		PrimaryAttached:  e.sched.Active(),
		MoveGeneration:   moved,
		ResizeGeneration: resized,
	}
	st.LastSync, st.Synced = e.sched.SinceLastSync()
	err := e.exec.Do(ctx, func() {
		st.PanelPresent = e.provider.Exists(Panel)
	})
	return st, err
}

// syncNow recomputes the panel rectangle from the current primary geometry
// and applies it. It runs on the main context.
func (e *Engine) syncNow(raise bool) error {
	if !e.provider.Exists(Panel) {
		return ErrNotPresent
	}
	e.sched.MarkSynced()

	primary, ok := e.provider.Rect(Primary)
	if !ok {
		e.logger.Debug("sync skipped", "error", ErrPrimaryUnavailable)
		return ErrPrimaryUnavailable
	}

	target, ok := e.geom.Compute(primary, e.provider.Scale(Primary), e.cfg.Snapshot(), e.provider.Scale(Panel))
	if !ok {
		// Keep the panel's geometry rather than collapse it.
		if err := e.provider.Show(Panel); err != nil {
			e.logger.Debug("showing panel failed", "error", err)
		}
		return nil
	}

	err := e.applier.Apply(target, raise)
	switch {
	case err == nil:
		e.logger.Debug("panel synced", "primary", primary, "panel", target, "raise", raise)
	case IsBenign(err):
		e.logger.Debug("sync skipped", "error", err)
	default:
		e.logger.Warn("panel sync incomplete", "error", err)
	}
	return err
}

func (e *Engine) ensurePanel() error {
	if e.provider.Exists(Panel) {
		return nil
	}
	initial := e.initialPanelRect()
	e.logger.Info("creating panel window", "rect", initial, "side", e.cfg.Side())
	if err := e.provider.Create(Panel, initial, PanelStyle); err != nil {
		return fmt.Errorf("create panel: %w", err)
	}
	return nil
}

func (e *Engine) logPanelCreate(err error) {
	if IsBenign(err) {
		e.logger.Info("waiting for panel window to appear", "reason", err)
		return
	}
	e.logger.Warn("panel window create failed", "error", err)
}

// initialPanelRect places a new panel next to the primary. When the primary
// has not been shown yet its position or size may be unavailable; fallbacks
// still give a usable rectangle so the panel gets created.
func (e *Engine) initialPanelRect() WindowRect {
	scale := e.provider.Scale(Primary)
	primary, ok := e.provider.Rect(Primary)
	if !ok || primary.Empty() {
		fallback := WindowRect{
			Width:  FallbackPrimaryWidth,
			Height: FallbackPrimaryHeight,
			Space:  Logical,
		}.ToPhysical(scale)
		if ok {
			fallback.X, fallback.Y = primary.X, primary.Y
		}
		primary = fallback
	}
	target, _ := e.geom.Compute(primary, scale, e.cfg.Snapshot(), scale)
	target.Y = max(0, target.Y)
	return target
}

func (e *Engine) restorePrimarySize() {
	if !e.restore || e.store == nil {
		return
	}
	size, ok := e.store.LoadWindowSize()
	if !ok || size.Width <= 0 || size.Height <= 0 {
		return
	}
	phys := WindowRect{
		Width:  uint32(size.Width),
		Height: uint32(size.Height),
		Space:  Logical,
	}.ToPhysical(e.provider.Scale(Primary))
	if err := e.provider.Resize(Primary, phys.Width, phys.Height); err != nil {
		e.logger.Debug("restoring primary size failed", "error", err)
		return
	}
	e.logger.Info("primary size restored", "width", size.Width, "height", size.Height)
}

func (e *Engine) persistPrimarySize() {
	rect, ok := e.provider.Rect(Primary)
	if !ok || rect.Empty() {
		return
	}
	logical := rect.ToLogical(e.provider.Scale(Primary))
	size := WindowSize{Width: float64(logical.Width), Height: float64(logical.Height)}
	if err := e.store.SaveWindowSize(size); err != nil {
		e.logger.Debug("persisting primary size failed", "error", err)
	}
}
