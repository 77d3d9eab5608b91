package daemon

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/termdock/internal/dock"
	"github.com/1broseidon/termdock/internal/platform"
)

type fakeBackend struct {
	bound   map[dock.WindowName]platform.WindowID
	alive   map[platform.WindowID]bool
	classes map[string]platform.WindowID
	active  platform.WindowID
	special map[platform.WindowID]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		bound:   make(map[dock.WindowName]platform.WindowID),
		alive:   make(map[platform.WindowID]bool),
		classes: make(map[string]platform.WindowID),
		special: make(map[platform.WindowID]bool),
	}
}

func (b *fakeBackend) addWindow(id platform.WindowID, class string) {
	b.alive[id] = true
	if class != "" {
		b.classes[class] = id
	}
}

func (b *fakeBackend) removeWindow(id platform.WindowID) {
	delete(b.alive, id)
	for class, win := range b.classes {
		if win == id {
			delete(b.classes, class)
		}
	}
}

func (b *fakeBackend) Exists(name dock.WindowName) bool {
	id, ok := b.bound[name]
	return ok && b.alive[id]
}
func (b *fakeBackend) Rect(dock.WindowName) (dock.WindowRect, bool) { return dock.WindowRect{}, false }
func (b *fakeBackend) Scale(dock.WindowName) float64 { return 1 }
func (b *fakeBackend) Move(dock.WindowName, int, int) error { return nil }
func (b *fakeBackend) Resize(dock.WindowName, uint32, uint32) error { return nil }
func (b *fakeBackend) Show(dock.WindowName) error { return nil }
func (b *fakeBackend) Focus(dock.WindowName) error { return nil }
func (b *fakeBackend) Close(dock.WindowName) error { return nil }
func (b *fakeBackend) Create(dock.WindowName, dock.WindowRect, dock.Style) error { return nil }

func (b *fakeBackend) ActiveWindow() (platform.WindowID, error) { return b.active, nil }
func (b *fakeBackend) FindByClass(class string) (platform.WindowID, bool, error) {
	id, ok := b.classes[class]
	return id, ok, nil
}
func (b *fakeBackend) IsNormalWindow(id platform.WindowID) bool { return !b.special[id] }

func (b *fakeBackend) Bind(name dock.WindowName, id platform.WindowID) { b.bound[name] = id }
func (b *fakeBackend) Unbind(name dock.WindowName) { delete(b.bound, name) }
func (b *fakeBackend) Window(name dock.WindowName) (platform.WindowID, bool) {
	id, ok := b.bound[name]
	return id, ok
}

type fakeBinder struct {
	watched map[dock.WindowName]platform.WindowID
	watches int
}

func (f *fakeBinder) Watch(name dock.WindowName, id platform.WindowID) error {
	if f.watched == nil {
		f.watched = make(map[dock.WindowName]platform.WindowID)
	}
	if f.watched[name] != id {
		f.watches++
	}
	f.watched[name] = id
	return nil
}

func (f *fakeBinder) Unwatch(name dock.WindowName) { delete(f.watched, name) }

type recordingLifecycle struct {
	ready, panelCreated, destroyed int
}

func (l *recordingLifecycle) OnAppReady() { l.ready++ }
func (l *recordingLifecycle) OnPanelCreated() { l.panelCreated++ }
func (l *recordingLifecycle) OnPrimaryDestroyed() { l.destroyed++ }

type inlineExecutor struct{}

func (inlineExecutor) Post(fn func()) bool { fn(); return true }
func (inlineExecutor) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

func newTestReconciler(cfg ReconcilerConfig) (*Reconciler, *fakeBackend, *fakeBinder, *recordingLifecycle) {
	backend := newFakeBackend()
	binder := &fakeBinder{}
	lifecycle := &recordingLifecycle{}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReconciler(cfg, backend, lifecycle, binder, inlineExecutor{}), backend, binder, lifecycle
}

func TestReconcilerAttachesPrimaryByClass(t *testing.T) {
	r, backend, binder, lifecycle := newTestReconciler(ReconcilerConfig{PrimaryClass: "Notes", PanelClass: "termdock-panel"})
	ctx := context.Background()

	if err := r.ReconcileNow(ctx); err != nil {
		t.Fatalf("ReconcileNow: %v", err)
	}
	if lifecycle.ready != 0 {
		t.Fatalf("OnAppReady called without a primary window")
	}

	backend.addWindow(0x400001, "Notes")
	_ = r.ReconcileNow(ctx)
	_ = r.ReconcileNow(ctx)

	if id, ok := backend.Window(dock.Primary); !ok || id != 0x400001 {
		t.Fatalf("primary binding = (%#x, %v)", id, ok)
	}
	if binder.watched[dock.Primary] != 0x400001 {
		t.Fatalf("primary not watched")
	}
	if lifecycle.ready != 1 {
		t.Fatalf("OnAppReady called %d times, want 1", lifecycle.ready)
	}
}

func TestReconcilerFallsBackToActiveWindow(t *testing.T) {
	r, backend, _, lifecycle := newTestReconciler(ReconcilerConfig{PanelClass: "termdock-panel"})
	ctx := context.Background()

	backend.addWindow(0x600002, "termdock-panel")
	backend.active = 0x600002
	_ = r.ReconcileNow(ctx)
	if _, ok := backend.Window(dock.Primary); ok {
		t.Fatalf("panel must never become the primary")
	}

	backend.addWindow(0x100000, "")
	backend.special[0x100000] = true
	backend.active = 0x100000
	_ = r.ReconcileNow(ctx)
	if _, ok := backend.Window(dock.Primary); ok {
		t.Fatalf("desktop-type window must not become the primary")
	}

	backend.addWindow(0x400001, "")
	backend.active = 0x400001
	_ = r.ReconcileNow(ctx)
	if id, ok := backend.Window(dock.Primary); !ok || id != 0x400001 {
		t.Fatalf("primary binding = (%#x, %v)", id, ok)
	}
	if lifecycle.ready != 1 {
		t.Fatalf("OnAppReady called %d times, want 1", lifecycle.ready)
	}
}

func TestReconcilerDetectsLostPrimary(t *testing.T) {
	r, backend, binder, lifecycle := newTestReconciler(ReconcilerConfig{PrimaryClass: "Notes"})
	ctx := context.Background()

	backend.addWindow(0x400001, "Notes")
	_ = r.ReconcileNow(ctx)

	backend.removeWindow(0x400001)
	_ = r.ReconcileNow(ctx)

	if _, ok := backend.Window(dock.Primary); ok {
		t.Fatalf("expected primary unbound")
	}
	if _, ok := binder.watched[dock.Primary]; ok {
		t.Fatalf("expected primary unwatched")
	}
	if lifecycle.destroyed != 1 {
		t.Fatalf("OnPrimaryDestroyed called %d times, want 1", lifecycle.destroyed)
	}

	backend.addWindow(0x400009, "Notes")
	_ = r.ReconcileNow(ctx)
	if lifecycle.ready != 2 {
		t.Fatalf("OnAppReady called %d times, want 2 after reattach", lifecycle.ready)
	}
}

func TestReconcilerAdoptsPanel(t *testing.T) {
	r, backend, binder, lifecycle := newTestReconciler(ReconcilerConfig{PrimaryClass: "Notes", PanelClass: "termdock-panel"})
	ctx := context.Background()

	backend.addWindow(0x400001, "Notes")
	_ = r.ReconcileNow(ctx)

	backend.addWindow(0x600002, "termdock-panel")
	_ = r.ReconcileNow(ctx)
	_ = r.ReconcileNow(ctx)

	if id, ok := backend.Window(dock.Panel); !ok || id != 0x600002 {
		t.Fatalf("panel binding = (%#x, %v)", id, ok)
	}
	if binder.watched[dock.Panel] != 0x600002 {
		t.Fatalf("panel not watched")
	}
	if lifecycle.panelCreated != 1 {
		t.Fatalf("OnPanelCreated called %d times, want 1", lifecycle.panelCreated)
	}

	backend.removeWindow(0x600002)
	_ = r.ReconcileNow(ctx)
	if _, ok := backend.Window(dock.Panel); ok {
		t.Fatalf("expected panel unbound after it disappeared")
	}
}

func TestReconcilerWatchesPanelCreatedByEngine(t *testing.T) {
	r, backend, binder, lifecycle := newTestReconciler(ReconcilerConfig{PrimaryClass: "Notes", PanelClass: "termdock-panel"})

	backend.addWindow(0x600002, "termdock-panel")
	backend.Bind(dock.Panel, 0x600002)
	_ = r.ReconcileNow(context.Background())

	if binder.watched[dock.Panel] != 0x600002 {
		t.Fatalf("bound panel not watched")
	}
	if lifecycle.panelCreated != 0 {
		t.Fatalf("OnPanelCreated must not fire for a panel the engine created")
	}
}
