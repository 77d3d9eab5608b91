package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/termdock/internal/platform"
)

const actionTimeout = 10 * time.Second

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Bindings names the key sequences for each action. Empty sequences are
// not registered.
type Bindings struct {
	ToggleSide  string
	ToggleWidth string
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler.
func NewHandler(backend platform.Backend, logger *slog.Logger) *Handler {
	var xu *xgbutil.XUtil
	var root xproto.Window
	if accessor, ok := backend.(x11Accessor); ok {
		xu = accessor.XUtil()
		root = accessor.RootWindow()
	}
	if logger == nil {
		logger = slog.Default()
	}

	if xu != nil {
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(xu)
		})
	}

	return &Handler{
		xu:     xu,
		root:   root,
		logger: logger,
	}
}

// Register binds the dock toggles. Actions run off the X event goroutine
// because they wait for the main loop.
func (h *Handler) Register(b Bindings, toggleSide func(context.Context) (string, error), toggleWidth func(context.Context) (int, error)) error {
	if h.xu == nil {
		return fmt.Errorf("hotkeys require an X11 backend")
	}
	if seq := strings.TrimSpace(b.ToggleSide); seq != "" {
		if err := h.RegisterFunc(seq, func() {
			go h.run("toggle_side", func(ctx context.Context) (any, error) { return toggleSide(ctx) })
		}); err != nil {
			return fmt.Errorf("failed to register toggle_side hotkey %q: %w", seq, err)
		}
		h.logger.Info("hotkey registered", "action", "toggle_side", "keys", seq)
	}
	if seq := strings.TrimSpace(b.ToggleWidth); seq != "" {
		if err := h.RegisterFunc(seq, func() {
			go h.run("toggle_width", func(ctx context.Context) (any, error) { return toggleWidth(ctx) })
		}); err != nil {
			return fmt.Errorf("failed to register toggle_width hotkey %q: %w", seq, err)
		}
		h.logger.Info("hotkey registered", "action", "toggle_width", "keys", seq)
	}
	return nil
}

func (h *Handler) run(action string, fn func(context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	result, err := fn(ctx)
	if err != nil {
		h.logger.Warn("hotkey action failed", "action", action, "error", err)
		return
	}
	h.logger.Debug("hotkey triggered", "action", action, "result", result)
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
