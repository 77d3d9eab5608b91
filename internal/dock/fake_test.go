package dock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock fires timers only when Advance moves time past them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []fakeTimer
}

type fakeTimer struct {
	at  time.Time
	seq int
	f   func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.timers = append(c.timers, fakeTimer{at: c.now.Add(d), seq: c.seq, f: f})
}

// Advance moves time forward by d, running due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			if c.timers[i].at.Equal(c.timers[j].at) {
				return c.timers[i].seq < c.timers[j].seq
			}
			return c.timers[i].at.Before(c.timers[j].at)
		})
		if len(c.timers) == 0 || c.timers[0].at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		next := c.timers[0]
		c.timers = c.timers[1:]
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// inlineExecutor runs work on the calling goroutine.
type inlineExecutor struct {
	posted int
}

func (e *inlineExecutor) Post(fn func()) bool {
	e.posted++
	fn()
	return true
}

func (e *inlineExecutor) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

// serialExecutor runs work one closure at a time, like the main loop.
type serialExecutor struct {
	mu sync.Mutex
}

func (e *serialExecutor) Post(fn func()) bool {
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		fn()
	}()
	return true
}

func (e *serialExecutor) Do(_ context.Context, fn func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
	return nil
}

type fakeWindow struct {
	rect    WindowRect
	visible bool
}

// fakeProvider records every window call.
type fakeProvider struct {
	windows map[WindowName]*fakeWindow
	scale   map[WindowName]float64
	fail    map[string]error
	calls   []string
	created []WindowRect
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		windows: make(map[WindowName]*fakeWindow),
		scale:   make(map[WindowName]float64),
		fail:    make(map[string]error),
	}
}

func (p *fakeProvider) setWindow(name WindowName, r WindowRect) {
	r.Space = Physical
	if w, ok := p.windows[name]; ok {
		w.rect = r
		return
	}
	p.windows[name] = &fakeWindow{rect: r}
}

func (p *fakeProvider) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	p.calls = append(p.calls, call)
	for prefix, err := range p.fail {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			return err
		}
	}
	return nil
}

func (p *fakeProvider) count(prefix string) int {
	n := 0
	for _, c := range p.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (p *fakeProvider) reset() {
	p.calls = nil
}

func (p *fakeProvider) Exists(name WindowName) bool {
	_, ok := p.windows[name]
	return ok
}

func (p *fakeProvider) Rect(name WindowName) (WindowRect, bool) {
	w, ok := p.windows[name]
	if !ok {
		return WindowRect{}, false
	}
	return w.rect, true
}

func (p *fakeProvider) Scale(name WindowName) float64 {
	if s, ok := p.scale[name]; ok {
		return s
	}
	return 1.0
}

func (p *fakeProvider) Move(name WindowName, x, y int) error {
	if err := p.record("move %s %d,%d", name, x, y); err != nil {
		return err
	}
	w, ok := p.windows[name]
	if !ok {
		return errors.New("no such window")
	}
	w.rect.X, w.rect.Y = x, y
	return nil
}

func (p *fakeProvider) Resize(name WindowName, width, height uint32) error {
	if err := p.record("resize %s %dx%d", name, width, height); err != nil {
		return err
	}
	w, ok := p.windows[name]
	if !ok {
		return errors.New("no such window")
	}
	w.rect.Width, w.rect.Height = width, height
	return nil
}

func (p *fakeProvider) Show(name WindowName) error {
	if err := p.record("show %s", name); err != nil {
		return err
	}
	if w, ok := p.windows[name]; ok {
		w.visible = true
	}
	return nil
}

func (p *fakeProvider) Focus(name WindowName) error {
	return p.record("focus %s", name)
}

func (p *fakeProvider) Close(name WindowName) error {
	if err := p.record("close %s", name); err != nil {
		return err
	}
	delete(p.windows, name)
	return nil
}

func (p *fakeProvider) Create(name WindowName, initial WindowRect, style Style) error {
	if err := p.record("create %s", name); err != nil {
		return err
	}
	p.created = append(p.created, initial)
	p.windows[name] = &fakeWindow{rect: initial}
	return nil
}

type fakeStore struct {
	side      Side
	sideSaves int
	size      WindowSize
	hasSize   bool
	sizeSaves int
	err       error
}

func (s *fakeStore) SaveDockSide(side Side) error {
	s.side = side
	s.sideSaves++
	return s.err
}

func (s *fakeStore) LoadWindowSize() (WindowSize, bool) {
	return s.size, s.hasSize
}

func (s *fakeStore) SaveWindowSize(size WindowSize) error {
	s.size = size
	s.hasSize = true
	s.sizeSaves++
	return s.err
}

// gatedStore blocks SaveDockSide for one side until release is closed.
type gatedStore struct {
	*fakeStore
	gate    Side
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) SaveDockSide(side Side) error {
	if side == s.gate {
		close(s.entered)
		<-s.release
	}
	return s.fakeStore.SaveDockSide(side)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testRig struct {
	engine   *Engine
	provider *fakeProvider
	clock    *fakeClock
	exec     *inlineExecutor
	store    *fakeStore
}

func newTestRig(t *testing.T, side Side) *testRig {
	t.Helper()
	provider := newFakeProvider()
	provider.setWindow(Primary, WindowRect{X: 100, Y: 100, Width: 800, Height: 600})
	provider.setWindow(Panel, WindowRect{X: 0, Y: 0, Width: 10, Height: 10})

	clock := newFakeClock()
	exec := &inlineExecutor{}
	store := &fakeStore{}
	cfg := NewConfig(WidthLimits{Min: DefaultMinWidth, Max: DefaultMaxWidth}, 80, side)
	engine := NewEngine(cfg, provider, exec, Options{
		Geometry: DefaultGeometry(),
		Timing:   DefaultTiming(),
		Clock:    clock,
		Store:    store,
		Logger:   discardLogger(),
	})
	return &testRig{engine: engine, provider: provider, clock: clock, exec: exec, store: store}
}
