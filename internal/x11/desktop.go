package x11

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// baseDPI is the X11 reference resolution for a scale factor of 1.0.
const baseDPI = 96.0

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// Sends an EWMH client message to the root window.
// We build the message manually because the xgbutil ewmh helpers panic on
// this library version.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// ScaleFactor returns Xft.dpi / 96 from the root RESOURCE_MANAGER property.
// ok is false when the resource is missing or unusable.
func (c *Connection) ScaleFactor() (float64, bool) {
	resources, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, c.Root, "RESOURCE_MANAGER"))
	if err != nil {
		return 0, false
	}
	return ScaleFromResources(resources)
}

// ScaleFromResources extracts Xft.dpi from an X resource database string and
// converts it to a scale factor.
func ScaleFromResources(resources string) (float64, bool) {
	for _, line := range strings.Split(resources, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || dpi <= 0 {
			return 0, false
		}
		return dpi / baseDPI, true
	}
	return 0, false
}
