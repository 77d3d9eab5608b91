package platform

import "github.com/1broseidon/termdock/internal/dock"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Backend abstracts the window-system operations the daemon needs: the
// named-window provider the dock engine drives, plus discovery and binding
// of the concrete windows behind each name.
type Backend interface {
	dock.Provider

	ActiveWindow() (WindowID, error)
	FindByClass(class string) (WindowID, bool, error)
	IsNormalWindow(id WindowID) bool

	Bind(name dock.WindowName, id WindowID)
	Unbind(name dock.WindowName)
	Window(name dock.WindowName) (WindowID, bool)
}
