package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Geometry is a window rectangle in root coordinates.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// MoveWindow moves a window's frame to x, y.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).Move(x, y)
	}
	return nil
}

// ResizeWindow resizes a window to width x height.
func (c *Connection) ResizeWindow(windowID xproto.Window, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	if err := ewmh.ResizeWindow(c.XUtil, windowID, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).Resize(width, height)
	}
	return nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Maximized windows ignore geometry requests.
	_ = c.unmaximizeWindow(windowID)

	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			if err := ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state); err != nil {
				return err
			}
		}
	}
	return nil
}

// FrameGeometry returns the window's outer rectangle including decorations.
func (c *Connection) FrameGeometry(windowID xproto.Window) (Geometry, error) {
	rect, err := xwindow.New(c.XUtil, windowID).DecorGeometry()
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{X: rect.X(), Y: rect.Y(), Width: rect.Width(), Height: rect.Height()}, nil
}

// ClientGeometry returns the client window's own rectangle, without
// decorations. X and Y are relative to its parent.
func (c *Connection) ClientGeometry(windowID xproto.Window) (Geometry, error) {
	rect, err := xwindow.New(c.XUtil, windowID).Geometry()
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{X: rect.X(), Y: rect.Y(), Width: rect.Width(), Height: rect.Height()}, nil
}

// TopLevelFrame returns the ancestor of windowID that is a direct child of
// the root window. Without a reparenting window manager that is windowID.
func (c *Connection) TopLevelFrame(windowID xproto.Window) xproto.Window {
	current := xwindow.New(c.XUtil, windowID)
	for {
		parent, err := current.Parent()
		if err != nil || parent.Id == c.Root || parent.Id == 0 {
			return current.Id
		}
		current = parent
	}
}

// ListenStructure selects StructureNotify events on windowID.
func (c *Connection) ListenStructure(windowID xproto.Window) error {
	return xwindow.New(c.XUtil, windowID).Listen(xproto.EventMaskStructureNotify)
}

// WindowExists reports whether windowID still refers to a live window.
func (c *Connection) WindowExists(windowID xproto.Window) bool {
	if windowID == 0 {
		return false
	}
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// MapWindow makes a window visible.
func (c *Connection) MapWindow(windowID xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// RaiseWindow restacks a window above its siblings.
func (c *Connection) RaiseWindow(windowID xproto.Window) error {
	if err := ewmh.RestackWindow(c.XUtil, windowID); err == nil {
		return nil
	}
	return xproto.ConfigureWindowChecked(
		c.XUtil.Conn(),
		windowID,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
}

// CloseWindow requests graceful window close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	conn := c.XUtil.Conn()
	deleteReply, err := xproto.InternAtom(conn, false, uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return err
	}
	protocolsReply, err := xproto.InternAtom(conn, false, uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		conn,
		false,
		windowID,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// SetUndecorated asks the window manager to draw no decorations.
func (c *Connection) SetUndecorated(windowID xproto.Window) error {
	return motif.WmHintsSet(c.XUtil, windowID, &motif.Hints{
		Flags:      motif.HintDecorations,
		Decoration: motif.DecorationNone,
	})
}

// AddWindowStates adds _NET_WM_STATE atoms to a mapped window.
func (c *Connection) AddWindowStates(windowID xproto.Window, states ...string) error {
	for _, state := range states {
		if err := ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateAdd, state); err != nil {
			return fmt.Errorf("failed to add %s: %w", state, err)
		}
	}
	return nil
}

// WindowClass returns the WM_CLASS instance and class of a window.
func (c *Connection) WindowClass(windowID xproto.Window) (instance, class string, err error) {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(wmClass.Instance), strings.TrimSpace(wmClass.Class), nil
}

// FindClientByClass returns the first managed client whose WM_CLASS class or
// instance matches class, ignoring case.
func (c *Connection) FindClientByClass(class string) (xproto.Window, bool, error) {
	class = strings.TrimSpace(class)
	if class == "" {
		return 0, false, nil
	}
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get client list: %w", err)
	}
	for _, win := range clients {
		instance, wmClass, err := c.WindowClass(win)
		if err != nil {
			continue
		}
		if strings.EqualFold(wmClass, class) || strings.EqualFold(instance, class) {
			return win, true, nil
		}
	}
	return 0, false, nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
