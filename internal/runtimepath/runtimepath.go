package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SocketEnv overrides the daemon socket path for both daemon and clients.
const SocketEnv = "TERMDOCK_SOCKET"

// Dir returns the per-user runtime directory holding the daemon socket:
// XDG_RUNTIME_DIR, else /run/user/<uid>, else a private directory under /tmp.
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/termdock-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	info, err := os.Stat(tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to stat runtime dir: %w", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		return "", fmt.Errorf("runtime dir %s is accessible by other users (mode %v)", tmpDir, info.Mode().Perm())
	}
	return tmpDir, nil
}

// SocketPath returns the socket of the daemon serving the current DISPLAY.
func SocketPath() (string, error) {
	return SocketPathForDisplay("")
}

// SocketPathForDisplay returns the socket of the daemon docking windows on
// display. An empty display means $DISPLAY. Each X display gets its own
// daemon, so the display number is part of the socket name.
func SocketPathForDisplay(display string) (string, error) {
	if override := strings.TrimSpace(os.Getenv(SocketEnv)); override != "" {
		return override, nil
	}
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	return filepath.Join(runtimeDir, socketName(display)), nil
}

// socketName maps a display name like ":1.0" or "host:0" to a file name.
// The screen number is dropped; the daemon docks across screens of one
// display.
func socketName(display string) string {
	display = strings.TrimSpace(display)
	host, number, ok := strings.Cut(display, ":")
	if !ok || number == "" {
		return "termdock.sock"
	}
	if dot := strings.IndexByte(number, '.'); dot >= 0 {
		number = number[:dot]
	}
	if strings.Contains(host, "/") {
		host = ""
	}
	if host != "" {
		return fmt.Sprintf("termdock-%s-%s.sock", host, number)
	}
	return fmt.Sprintf("termdock-%s.sock", number)
}
