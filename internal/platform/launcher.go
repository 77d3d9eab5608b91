package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/termdock/internal/dock"
)

// ErrPanelStarting means the panel command was started and its client has
// not been adopted yet. It wraps dock.ErrNotPresent.
var ErrPanelStarting = fmt.Errorf("%w: panel client starting", dock.ErrNotPresent)

// pendingPanel is the placement and style a started panel gets once its
// client is adopted.
type pendingPanel struct {
	initial  dock.WindowRect
	style    dock.Style
	deadline time.Time
}

// panelLauncher starts the panel command without waiting for its window.
// At most one start is outstanding until its deadline passes.
type panelLauncher struct {
	start   func() error
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	pending *pendingPanel
}

func newPanelLauncher(start func() error, timeout time.Duration) *panelLauncher {
	return &panelLauncher{start: start, timeout: timeout, now: time.Now}
}

// Launch starts the panel command unless a start is still outstanding. It
// returns ErrPanelStarting when the client is expected to appear later.
func (l *panelLauncher) Launch(initial dock.WindowRect, style dock.Style) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.pending != nil && now.Before(l.pending.deadline) {
		l.pending.initial = initial
		l.pending.style = style
		return ErrPanelStarting
	}
	if err := l.start(); err != nil {
		return err
	}
	l.pending = &pendingPanel{initial: initial, style: style, deadline: now.Add(l.timeout)}
	return ErrPanelStarting
}

// Take returns and clears the outstanding start, even a late one.
func (l *panelLauncher) Take() (pendingPanel, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return pendingPanel{}, false
	}
	p := *l.pending
	l.pending = nil
	return p, true
}
