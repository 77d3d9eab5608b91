//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/termdock/internal/dock"
	"github.com/1broseidon/termdock/internal/x11"
)

// Options configures how the backend creates and measures the panel.
type Options struct {
	// ScaleOverride replaces the detected display scale when > 0.
	ScaleOverride float64
	// PanelClass is the WM_CLASS a panel client is recognised by.
	PanelClass string
	// PanelCommand starts a panel client when none is running.
	PanelCommand string
	// SpawnTimeout is how long a started panel may take to appear before the
	// command is started again.
	SpawnTimeout time.Duration
	Logger       *slog.Logger
}

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
	opts Options

	launcher *panelLauncher

	mu      sync.Mutex
	windows map[dock.WindowName]xproto.Window
	scale   float64
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, opts Options) *LinuxBackend {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SpawnTimeout <= 0 {
		opts.SpawnTimeout = 5 * time.Second
	}
	b := &LinuxBackend{
		conn:    conn,
		opts:    opts,
		windows: make(map[dock.WindowName]xproto.Window),
	}
	b.launcher = newPanelLauncher(b.startPanel, opts.SpawnTimeout)
	return b
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay(display, xauthority string, opts Options) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display, xauthority)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, opts), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Connection returns the X11 connection the backend drives.
func (b *LinuxBackend) Connection() *x11.Connection {
	if b == nil {
		return nil
	}
	return b.conn
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Bind associates name with an X11 window. Binding the panel client of an
// outstanding start applies the style and placement it was created with.
func (b *LinuxBackend) Bind(name dock.WindowName, id WindowID) {
	b.bind(name, xproto.Window(id))
	if name != dock.Panel {
		return
	}
	if p, ok := b.launcher.Take(); ok {
		if conn, err := b.connection(); err == nil {
			b.adoptPanel(conn, xproto.Window(id), p.initial, p.style)
		}
	}
}

func (b *LinuxBackend) bind(name dock.WindowName, win xproto.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[name] = win
	b.scale = 0
}

// Unbind forgets the window behind name.
func (b *LinuxBackend) Unbind(name dock.WindowName) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, name)
}

// Window returns the X11 window bound to name.
func (b *LinuxBackend) Window(name dock.WindowName) (WindowID, bool) {
	win, ok := b.window(name)
	return WindowID(win), ok
}

func (b *LinuxBackend) window(name dock.WindowName) (xproto.Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	win, ok := b.windows[name]
	return win, ok
}

// ActiveWindow returns the currently active/focused window ID.
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(wid), nil
}

// FindByClass returns the first client whose WM_CLASS matches class.
func (b *LinuxBackend) FindByClass(class string) (WindowID, bool, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, false, err
	}
	win, ok, err := conn.FindClientByClass(class)
	return WindowID(win), ok, err
}

// IsNormalWindow reports whether id is an ordinary application window.
func (b *LinuxBackend) IsNormalWindow(id WindowID) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.IsNormalWindow(xproto.Window(id))
}

// Exists reports whether name is bound to a live window.
func (b *LinuxBackend) Exists(name dock.WindowName) bool {
	win, ok := b.window(name)
	if !ok {
		return false
	}
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.WindowExists(win)
}

// Rect returns the frame rectangle of name in physical pixels.
func (b *LinuxBackend) Rect(name dock.WindowName) (dock.WindowRect, bool) {
	win, conn, err := b.resolve(name)
	if err != nil {
		return dock.WindowRect{}, false
	}
	geom, err := conn.FrameGeometry(win)
	if err != nil {
		return dock.WindowRect{}, false
	}
	return dock.WindowRect{
		X:      geom.X,
		Y:      geom.Y,
		Width:  uint32(max(geom.Width, 0)),
		Height: uint32(max(geom.Height, 0)),
		Space:  dock.Physical,
	}, true
}

// Scale returns the configured override, else Xft.dpi / 96, else 1.0.
// X11 exposes a single scale for the whole screen.
func (b *LinuxBackend) Scale(dock.WindowName) float64 {
	if b.opts.ScaleOverride > 0 {
		return b.opts.ScaleOverride
	}

	b.mu.Lock()
	cached := b.scale
	b.mu.Unlock()
	if cached > 0 {
		return cached
	}

	scale := 1.0
	if conn, err := b.connection(); err == nil {
		if detected, ok := conn.ScaleFactor(); ok {
			scale = detected
		}
	}

	b.mu.Lock()
	b.scale = scale
	b.mu.Unlock()
	return scale
}

// Move places the frame of name at x, y.
func (b *LinuxBackend) Move(name dock.WindowName, x, y int) error {
	win, conn, err := b.resolve(name)
	if err != nil {
		return err
	}
	return conn.MoveWindow(win, x, y)
}

// Resize sets the frame size of name, the size Rect reports. Resize
// requests address the client, so the decoration size is taken off first.
func (b *LinuxBackend) Resize(name dock.WindowName, width, height uint32) error {
	win, conn, err := b.resolve(name)
	if err != nil {
		return err
	}
	w, h := int(width), int(height)
	frame, ferr := conn.FrameGeometry(win)
	client, cerr := conn.ClientGeometry(win)
	if ferr == nil && cerr == nil {
		w, h = clientSize(width, height, frame, client)
	}
	return conn.ResizeWindow(win, w, h)
}

// clientSize converts a frame size into the client size that yields it,
// given the current frame and client geometry of the window.
func clientSize(width, height uint32, frame, client x11.Geometry) (int, int) {
	decorW := max(frame.Width-client.Width, 0)
	decorH := max(frame.Height-client.Height, 0)
	return max(int(width)-decorW, 1), max(int(height)-decorH, 1)
}

// Show maps name.
func (b *LinuxBackend) Show(name dock.WindowName) error {
	win, conn, err := b.resolve(name)
	if err != nil {
		return err
	}
	return conn.MapWindow(win)
}

// Focus activates and raises name.
func (b *LinuxBackend) Focus(name dock.WindowName) error {
	win, conn, err := b.resolve(name)
	if err != nil {
		return err
	}
	if err := conn.FocusWindow(win); err != nil {
		return err
	}
	return conn.RaiseWindow(win)
}

// Close requests graceful close of name and forgets the binding.
func (b *LinuxBackend) Close(name dock.WindowName) error {
	win, conn, err := b.resolve(name)
	if err != nil {
		return err
	}
	b.Unbind(name)
	return conn.CloseWindow(win)
}

// Create binds the panel to a running client with the panel class and
// places it at initial. When none is running the panel command is started
// and ErrPanelStarting is returned; the client is adopted through Bind once
// it appears.
func (b *LinuxBackend) Create(name dock.WindowName, initial dock.WindowRect, style dock.Style) error {
	if name != dock.Panel {
		return fmt.Errorf("cannot create %s window", name)
	}
	conn, err := b.connection()
	if err != nil {
		return err
	}

	win, ok, err := conn.FindClientByClass(b.opts.PanelClass)
	if err != nil {
		return err
	}
	if !ok {
		return b.launcher.Launch(initial, style)
	}
	b.launcher.Take()
	b.bind(dock.Panel, win)
	return b.adoptPanel(conn, win, initial, style)
}

func (b *LinuxBackend) adoptPanel(conn *x11.Connection, win xproto.Window, initial dock.WindowRect, style dock.Style) error {
	b.applyStyle(conn, win, style)

	if initial.Space != dock.Physical {
		initial = initial.ToPhysical(b.Scale(dock.Panel))
	}
	if !initial.Empty() {
		if err := conn.MoveResizeWindow(win, initial.X, initial.Y, int(initial.Width), int(initial.Height)); err != nil {
			b.opts.Logger.Debug("initial panel placement failed", "window", win, "error", err)
		}
	}
	return conn.MapWindow(win)
}

func (b *LinuxBackend) applyStyle(conn *x11.Connection, win xproto.Window, style dock.Style) {
	logger := b.opts.Logger
	if style.Has(dock.StyleUndecorated) {
		if err := conn.SetUndecorated(win); err != nil {
			logger.Debug("failed to remove panel decorations", "window", win, "error", err)
		}
	}
	var states []string
	if style.Has(dock.StyleSkipTaskbar) {
		states = append(states, "_NET_WM_STATE_SKIP_TASKBAR")
	}
	if style.Has(dock.StyleSkipPager) {
		states = append(states, "_NET_WM_STATE_SKIP_PAGER")
	}
	if err := conn.AddWindowStates(win, states...); err != nil {
		logger.Debug("failed to set panel window state", "window", win, "error", err)
	}
	if style.Has(dock.StyleNoInitialFocus) {
		// A zero user time tells the window manager not to focus on map.
		if err := ewmh.WmUserTimeSet(conn.XUtil, win, 0); err != nil {
			logger.Debug("failed to set panel user time", "window", win, "error", err)
		}
	}
}

func (b *LinuxBackend) startPanel() error {
	args := spawnArgs(b.opts.PanelCommand)
	if len(args) == 0 {
		return fmt.Errorf("%w: no client with class %q and no panel command configured", dock.ErrNotPresent, b.opts.PanelClass)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start panel %q: %w", args[0], err)
	}
	b.opts.Logger.Info("panel started", "command", b.opts.PanelCommand, "pid", cmd.Process.Pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			b.opts.Logger.Warn("panel exited", "error", err)
		}
	}()
	return nil
}

func (b *LinuxBackend) resolve(name dock.WindowName) (xproto.Window, *x11.Connection, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, nil, err
	}
	win, ok := b.window(name)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s window not bound", dock.ErrNotPresent, name)
	}
	return win, conn, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

// spawnArgs splits a panel command line on whitespace.
func spawnArgs(command string) []string {
	return strings.Fields(strings.TrimSpace(command))
}
