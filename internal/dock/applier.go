package dock

import (
	"errors"
	"fmt"
	"log/slog"
)

// WindowName identifies one of the two windows the engine manages.
type WindowName string

const (
	Primary WindowName = "primary"
	Panel   WindowName = "panel"
)

// Style is a set of window creation flags.
type Style uint8

const (
	StyleUndecorated Style = 1 << iota
	StyleSkipTaskbar
	StyleSkipPager
	StyleNoInitialFocus
)

// PanelStyle is the style the panel window is created with.
const PanelStyle = StyleUndecorated | StyleSkipTaskbar | StyleSkipPager | StyleNoInitialFocus

// Has reports whether all flags in f are set.
func (s Style) Has(f Style) bool {
	return s&f == f
}

// Provider gives access to named windows. Any query or command may fail
// because the window has not been created yet or was destroyed
// concurrently; the engine treats that as a no-op and retries on the next
// event. All methods are called from the main execution context.
type Provider interface {
	Exists(name WindowName) bool
	// Rect returns the outer frame rectangle in physical pixels.
	Rect(name WindowName) (WindowRect, bool)
	// Scale returns the device scale factor, 1.0 when unknown.
	Scale(name WindowName) float64
	Move(name WindowName, x, y int) error
	Resize(name WindowName, width, height uint32) error
	Show(name WindowName) error
	Focus(name WindowName) error
	Close(name WindowName) error
	Create(name WindowName, initial WindowRect, style Style) error
}

// Applier issues the window calls that put the panel at a target rectangle.
// It never creates windows.
type Applier struct {
	provider Provider
	logger   *slog.Logger
}

// NewApplier creates an applier for provider.
func NewApplier(provider Provider, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{provider: provider, logger: logger}
}

// Apply moves, resizes and shows the panel, in that order. Calls whose
// result already matches the panel's current geometry are skipped, so
// applying the same target twice changes nothing.
//
// With raise set, the panel is focused to lift it above the primary in
// stacking order and focus is then handed straight back to the primary.
//
// Failed calls are logged and collected into an ErrApplyFailed error; they
// are never fatal.
func (a *Applier) Apply(target WindowRect, raise bool) error {
	if !a.provider.Exists(Panel) {
		return ErrNotPresent
	}
	if target.Space != Physical {
		return fmt.Errorf("%w: target %s is not in physical pixels", ErrApplyFailed, target)
	}

	current, known := a.provider.Rect(Panel)

	var errs []error
	if !known || !current.SamePosition(target) {
		if err := a.provider.Move(Panel, target.X, target.Y); err != nil {
			errs = append(errs, a.failed("move", err))
		}
	}
	if !known || !current.SameSize(target) {
		if err := a.provider.Resize(Panel, target.Width, target.Height); err != nil {
			errs = append(errs, a.failed("resize", err))
		}
	}
	if err := a.provider.Show(Panel); err != nil {
		errs = append(errs, a.failed("show", err))
	}
	if raise {
		if err := a.provider.Focus(Panel); err != nil {
			errs = append(errs, a.failed("raise panel", err))
		}
		if err := a.provider.Focus(Primary); err != nil {
			errs = append(errs, a.failed("refocus primary", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrApplyFailed, errors.Join(errs...))
	}
	return nil
}

func (a *Applier) failed(op string, err error) error {
	a.logger.Debug("panel update failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}
