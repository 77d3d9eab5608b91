package daemon

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/termdock/internal/dock"
	"github.com/1broseidon/termdock/internal/platform"
	"github.com/1broseidon/termdock/internal/x11"
)

// Hooks receives primary window lifecycle notifications.
type Hooks interface {
	OnPrimaryMoved()
	OnPrimaryResized()
	OnPrimaryDestroyed()
}

// Change describes how a window's frame changed between two configure events.
type Change uint8

const (
	ChangeMoved Change = 1 << iota
	ChangeResized
)

// Has reports whether c includes flag.
func (c Change) Has(flag Change) bool {
	return c&flag != 0
}

// Classify compares two frame geometries. Without a previous geometry any
// event counts as both a move and a resize.
func Classify(prev, next x11.Geometry, known bool) Change {
	if !known {
		return ChangeMoved | ChangeResized
	}
	var c Change
	if prev.X != next.X || prev.Y != next.Y {
		c |= ChangeMoved
	}
	if prev.Width != next.Width || prev.Height != next.Height {
		c |= ChangeResized
	}
	return c
}

type watchedWindow struct {
	client xproto.Window
	frame  xproto.Window
	last   x11.Geometry
	known  bool
}

// Watcher turns X11 structure events on the bound windows into dock hooks.
// Configure events are taken from the top-level frame so coordinates are
// root relative; destroy events come from the client window.
type Watcher struct {
	conn    *x11.Connection
	backend platform.Backend
	hooks   Hooks
	exec    dock.Executor
	logger  *slog.Logger

	mu      sync.Mutex
	watched map[dock.WindowName]*watchedWindow
}

// NewWatcher creates a watcher. Destroy handling is posted onto exec.
func NewWatcher(conn *x11.Connection, backend platform.Backend, hooks Hooks, exec dock.Executor, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		conn:    conn,
		backend: backend,
		hooks:   hooks,
		exec:    exec,
		logger:  logger,
		watched: make(map[dock.WindowName]*watchedWindow),
	}
}

// Watching returns the client window currently watched under name.
func (w *Watcher) Watching(name dock.WindowName) (platform.WindowID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ww, ok := w.watched[name]
	if !ok {
		return 0, false
	}
	return platform.WindowID(ww.client), true
}

// Watch subscribes to structure events of id under name. Watching the same
// window twice is a no-op; a different window replaces the old subscription.
func (w *Watcher) Watch(name dock.WindowName, id platform.WindowID) error {
	client := xproto.Window(id)

	w.mu.Lock()
	existing, ok := w.watched[name]
	w.mu.Unlock()
	if ok && existing.client == client {
		return nil
	}
	if ok {
		w.Unwatch(name)
	}

	frame := w.conn.TopLevelFrame(client)
	if err := w.conn.ListenStructure(frame); err != nil {
		return fmt.Errorf("failed to listen on frame %d: %w", frame, err)
	}
	if frame != client {
		if err := w.conn.ListenStructure(client); err != nil {
			return fmt.Errorf("failed to listen on window %d: %w", client, err)
		}
	}

	ww := &watchedWindow{client: client, frame: frame}
	if geom, err := w.conn.FrameGeometry(client); err == nil {
		ww.last = geom
		ww.known = true
	}

	w.mu.Lock()
	w.watched[name] = ww
	w.mu.Unlock()

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		w.handleConfigure(name, client, frameGeometry(ev))
	}).Connect(w.conn.XUtil, frame)

	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if ev.Window != client {
			return
		}
		w.handleDestroy(name, client)
	}).Connect(w.conn.XUtil, client)

	w.logger.Debug("watching window", "name", name, "window", client, "frame", frame)
	return nil
}

// Unwatch drops every subscription made for name.
func (w *Watcher) Unwatch(name dock.WindowName) {
	w.mu.Lock()
	ww, ok := w.watched[name]
	delete(w.watched, name)
	w.mu.Unlock()
	if !ok {
		return
	}
	xevent.Detach(w.conn.XUtil, ww.frame)
	if ww.frame != ww.client {
		xevent.Detach(w.conn.XUtil, ww.client)
	}
}

func (w *Watcher) handleConfigure(name dock.WindowName, client xproto.Window, geom x11.Geometry) {
	w.mu.Lock()
	ww, ok := w.watched[name]
	if !ok || ww.client != client {
		w.mu.Unlock()
		return
	}
	change := Classify(ww.last, geom, ww.known)
	ww.last = geom
	ww.known = true
	w.mu.Unlock()

	if name != dock.Primary {
		return
	}
	if change.Has(ChangeMoved) {
		w.hooks.OnPrimaryMoved()
	}
	if change.Has(ChangeResized) {
		w.hooks.OnPrimaryResized()
	}
}

func (w *Watcher) handleDestroy(name dock.WindowName, client xproto.Window) {
	w.logger.Debug("window destroyed", "name", name, "window", client)
	w.exec.Post(func() {
		if watched, ok := w.Watching(name); ok && xproto.Window(watched) == client {
			w.Unwatch(name)
		}
		current, ok := w.backend.Window(name)
		if !ok || xproto.Window(current) != client {
			return
		}
		w.backend.Unbind(name)
		if name == dock.Primary {
			w.hooks.OnPrimaryDestroyed()
		}
	})
}

func frameGeometry(ev xevent.ConfigureNotifyEvent) x11.Geometry {
	return x11.Geometry{
		X:      int(ev.X),
		Y:      int(ev.Y),
		Width:  int(ev.Width),
		Height: int(ev.Height),
	}
}
