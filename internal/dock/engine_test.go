package dock

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSetPanelWidthSyncsImmediately(t *testing.T) {
	rig := newTestRig(t, SideRight)
	ctx := context.Background()

	stored, err := rig.engine.SetPanelWidth(ctx, 5)
	if err != nil {
		t.Fatalf("SetPanelWidth: %v", err)
	}
	if stored != 80 {
		t.Fatalf("expected clamped width 80, got %d", stored)
	}
	if got, _ := rig.provider.Rect(Panel); got != (WindowRect{X: 900, Y: 100, Width: 84, Height: 600}) {
		t.Fatalf("unexpected panel rect %s", got)
	}

	stored, err = rig.engine.SetPanelWidth(ctx, 9999)
	if err != nil {
		t.Fatalf("SetPanelWidth: %v", err)
	}
	if stored != 150 {
		t.Fatalf("expected clamped width 150, got %d", stored)
	}
	if got, _ := rig.provider.Rect(Panel); got.Width != 154 {
		t.Fatalf("expected panel width 154, got %s", got)
	}
}

func TestSyncDegeneratePrimaryOnlyShowsPanel(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	rig.provider.setWindow(Primary, WindowRect{X: 100, Y: 100, Width: 800, Height: 0})

	if err := rig.engine.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if rig.provider.count("resize") != 0 || rig.provider.count("move") != 0 {
		t.Fatalf("degenerate primary must not change panel geometry: %v", rig.provider.calls)
	}
	if rig.provider.count("show panel") != 1 {
		t.Fatalf("expected panel to be shown, got %v", rig.provider.calls)
	}
	if got, _ := rig.provider.Rect(Panel); got.Height == 0 {
		t.Fatalf("panel collapsed to zero height")
	}
}

func TestSyncPrimaryUnavailable(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	delete(rig.provider.windows, Primary)

	err := rig.engine.Resync(context.Background())
	if !errors.Is(err, ErrPrimaryUnavailable) {
		t.Fatalf("expected ErrPrimaryUnavailable, got %v", err)
	}
	if len(rig.provider.calls) != 0 {
		t.Fatalf("expected no window calls, got %v", rig.provider.calls)
	}
}

func TestSetDockSideCreatesMissingPanel(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	delete(rig.provider.windows, Panel)

	side, err := rig.engine.SetDockSide(context.Background(), "RIGHT")
	if err != nil {
		t.Fatalf("SetDockSide: %v", err)
	}
	if side != SideRight || rig.engine.Config().Side() != SideRight {
		t.Fatalf("expected right side, got %s", side)
	}
	if rig.provider.count("create panel") != 1 {
		t.Fatalf("expected panel to be created once, got %v", rig.provider.calls)
	}
	if len(rig.provider.created) != 1 || rig.provider.created[0].X != 900 {
		t.Fatalf("expected panel created at the right edge, got %v", rig.provider.created)
	}
	if rig.store.side != SideRight || rig.store.sideSaves != 1 {
		t.Fatalf("expected dock side persisted, got %+v", rig.store)
	}
	if rig.provider.count("focus panel") != 1 {
		t.Fatalf("expected a raising sync after create, got %v", rig.provider.calls)
	}

	rig.provider.reset()
	if _, err := rig.engine.SetDockSide(context.Background(), "left"); err != nil {
		t.Fatalf("SetDockSide: %v", err)
	}
	if rig.provider.count("create") != 0 {
		t.Fatalf("existing panel must not be recreated: %v", rig.provider.calls)
	}
	if got, _ := rig.provider.Rect(Panel); got.X != 20 {
		t.Fatalf("expected panel moved to left edge, got %s", got)
	}
}

func TestSetDockSideInvalidDefaultsLeft(t *testing.T) {
	rig := newTestRig(t, SideRight)
	side, err := rig.engine.SetDockSide(context.Background(), "sideways")
	if err != nil {
		t.Fatalf("SetDockSide: %v", err)
	}
	if side != SideLeft {
		t.Fatalf("expected left for unknown side, got %s", side)
	}
}

func TestSetDockSidePersistFailureIsNotFatal(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	rig.store.err = ErrConfigIO

	if _, err := rig.engine.SetDockSide(context.Background(), "right"); err != nil {
		t.Fatalf("persist failure must not surface, got %v", err)
	}
	if got, _ := rig.provider.Rect(Panel); got.X != 900 {
		t.Fatalf("expected sync despite persist failure, got %s", got)
	}
}

func TestInitialPanelRectFallback(t *testing.T) {
	rig := newTestRig(t, SideRight)
	delete(rig.provider.windows, Panel)
	rig.provider.setWindow(Primary, WindowRect{X: 40, Y: -10, Width: 0, Height: 0})
	rig.provider.scale[Primary] = 2.0

	if _, err := rig.engine.SetDockSide(context.Background(), "right"); err != nil {
		t.Fatalf("SetDockSide: %v", err)
	}
	if len(rig.provider.created) != 1 {
		t.Fatalf("expected panel to be created, got %v", rig.provider.calls)
	}
	got := rig.provider.created[0]
	want := WindowRect{X: 40 + 750, Y: 0, Width: 164, Height: 900}
	if got != want {
		t.Fatalf("initial rect = %s, want %s", got, want)
	}
}

func TestPrimaryDestroyedClosesPanel(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	rig.engine.OnAppReady()
	rig.engine.OnPrimaryMoved()
	rig.provider.reset()

	rig.engine.OnPrimaryDestroyed()
	if rig.provider.count("close panel") != 1 {
		t.Fatalf("expected panel closed, got %v", rig.provider.calls)
	}

	rig.provider.reset()
	rig.clock.Advance(time.Second)
	rig.engine.OnPrimaryMoved()
	rig.engine.OnPrimaryResized()
	rig.clock.Advance(time.Second)
	if len(rig.provider.calls) != 0 {
		t.Fatalf("no transitions expected after destroy, got %v", rig.provider.calls)
	}

	st, err := rig.engine.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.PrimaryAttached || st.PanelPresent {
		t.Fatalf("unexpected status after destroy %+v", st)
	}
}

func TestAppReadyRestoresPrimarySize(t *testing.T) {
	provider := newFakeProvider()
	provider.setWindow(Primary, WindowRect{X: 0, Y: 0, Width: 800, Height: 600})
	provider.scale[Primary] = 2.0
	provider.scale[Panel] = 2.0
	store := &fakeStore{size: WindowSize{Width: 375, Height: 500}, hasSize: true}
	cfg := NewConfig(WidthLimits{Min: 80, Max: 150}, 80, SideRight)
	engine := NewEngine(cfg, provider, &inlineExecutor{}, Options{
		Geometry:           DefaultGeometry(),
		Timing:             DefaultTiming(),
		Clock:              newFakeClock(),
		Store:              store,
		RestorePrimarySize: true,
		Logger:             discardLogger(),
	})

	engine.OnAppReady()

	if provider.count("resize primary 750x1000") != 1 {
		t.Fatalf("expected primary restored to 750x1000, got %v", provider.calls)
	}
	if provider.count("create panel") != 1 {
		t.Fatalf("expected panel created on app ready, got %v", provider.calls)
	}
	if got, _ := provider.Rect(Panel); got != (WindowRect{X: 750, Y: 0, Width: 164, Height: 1000}) {
		t.Fatalf("unexpected panel rect %s", got)
	}
}

func TestPanelCreatedSyncsWithRaise(t *testing.T) {
	rig := newTestRig(t, SideRight)
	rig.engine.OnPanelCreated()
	if rig.provider.count("focus panel") != 1 || rig.provider.count("focus primary") != 1 {
		t.Fatalf("expected raising sync, got %v", rig.provider.calls)
	}
}

func TestTogglePanelWidthAndSide(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	ctx := context.Background()

	w, err := rig.engine.TogglePanelWidth(ctx)
	if err != nil || w != 150 {
		t.Fatalf("TogglePanelWidth() = (%d, %v), want 150", w, err)
	}
	w, err = rig.engine.TogglePanelWidth(ctx)
	if err != nil || w != 80 {
		t.Fatalf("TogglePanelWidth() = (%d, %v), want 80", w, err)
	}

	side, err := rig.engine.ToggleSide(ctx)
	if err != nil || side != SideRight {
		t.Fatalf("ToggleSide() = (%s, %v), want right", side, err)
	}
	if got, _ := rig.provider.Rect(Panel); got.X != 900 {
		t.Fatalf("expected panel on right edge, got %s", got)
	}
}

func TestStatusReportsGenerations(t *testing.T) {
	rig := newTestRig(t, SideRight)
	rig.engine.OnAppReady()
	rig.engine.OnPrimaryMoved()
	rig.engine.OnPrimaryMoved()
	rig.engine.OnPrimaryResized()

	st, err := rig.engine.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.MoveGeneration != 2 || st.ResizeGeneration != 1 {
		t.Fatalf("unexpected generations %+v", st)
	}
	if !st.PrimaryAttached || !st.PanelPresent || !st.Synced {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Side != SideRight || st.PanelWidth != 80 {
		t.Fatalf("unexpected settings in status %+v", st)
	}
}

func TestConcurrentDockSideChangesPersistLastSide(t *testing.T) {
	provider := newFakeProvider()
	provider.setWindow(Primary, WindowRect{X: 100, Y: 100, Width: 800, Height: 600})
	provider.setWindow(Panel, WindowRect{X: 0, Y: 0, Width: 10, Height: 10})
	store := &gatedStore{
		fakeStore: &fakeStore{},
		gate:      SideRight,
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	cfg := NewConfig(WidthLimits{Min: DefaultMinWidth, Max: DefaultMaxWidth}, 80, SideLeft)
	engine := NewEngine(cfg, provider, &serialExecutor{}, Options{
		Geometry: DefaultGeometry(),
		Timing:   DefaultTiming(),
		Clock:    newFakeClock(),
		Store:    store,
		Logger:   discardLogger(),
	})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- engine.ApplyDockSide(ctx, SideRight) }()
	<-store.entered

	second := make(chan error, 1)
	go func() { second <- engine.ApplyDockSide(ctx, SideLeft) }()

	select {
	case err := <-second:
		t.Fatalf("second side change finished while the first was persisting: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(store.release)
	if err := <-first; err != nil {
		t.Fatalf("ApplyDockSide(right): %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("ApplyDockSide(left): %v", err)
	}

	if live := engine.Config().Side(); live != SideLeft || store.side != SideLeft {
		t.Fatalf("live side %s, persisted side %s, want both left", live, store.side)
	}
	if store.sideSaves != 2 {
		t.Fatalf("expected two saves, got %d", store.sideSaves)
	}
}

func TestSetDockSideWhilePanelStarting(t *testing.T) {
	rig := newTestRig(t, SideLeft)
	delete(rig.provider.windows, Panel)
	rig.provider.fail["create panel"] = fmt.Errorf("%w: panel client starting", ErrNotPresent)

	if _, err := rig.engine.SetDockSide(context.Background(), "right"); err != nil {
		t.Fatalf("SetDockSide: %v", err)
	}
	if rig.store.side != SideRight || rig.engine.Config().Side() != SideRight {
		t.Fatalf("side must be stored while the panel starts, got %+v", rig.store)
	}
	if rig.provider.count("create panel") != 1 || rig.provider.count("move") != 0 {
		t.Fatalf("expected one create attempt and no sync, got %v", rig.provider.calls)
	}
}
