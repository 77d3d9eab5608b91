package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server and initializes
// required extensions. An empty display uses $DISPLAY; a non-empty
// xauthority is exported as $XAUTHORITY before dialing.
func NewConnection(display, xauthority string) (*Connection, error) {
	if xauthority != "" {
		if err := os.Setenv("XAUTHORITY", xauthority); err != nil {
			return nil, fmt.Errorf("failed to set XAUTHORITY: %w", err)
		}
	}

	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display != "" {
		xu, err = xgbutil.NewConnDisplay(display)
	} else {
		xu, err = xgbutil.NewConn()
	}
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
