package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/termdock/internal/ipc"
)

type fakeDockClient struct {
	side  string
	width int
	err   error
}

func (f *fakeDockClient) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	ms := int64(42)
	return &ipc.StatusData{
		DockSide:        f.side,
		PanelWidth:      f.width,
		MinWidth:        80,
		MaxWidth:        150,
		PrimaryAttached: true,
		PanelPresent:    true,
		LastSyncMS:      &ms,
		DaemonRunning:   true,
	}, nil
}

func (f *fakeDockClient) SetPanelWidth(width int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.width = min(max(width, 80), 150)
	return f.width, nil
}

func (f *fakeDockClient) SetDockSide(side string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.side = "left"
	if strings.EqualFold(strings.TrimSpace(side), "right") {
		f.side = "right"
	}
	return f.side, nil
}

func (f *fakeDockClient) ToggleSide() (string, error) {
	if f.side == "right" {
		return f.SetDockSide("left")
	}
	return f.SetDockSide("right")
}

func (f *fakeDockClient) ToggleWidth() (int, error) {
	if f.width > 80 {
		return f.SetPanelWidth(80)
	}
	return f.SetPanelWidth(150)
}

func (f *fakeDockClient) Resync() (*ipc.ResyncData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.ResyncData{Applied: f.width > 0}, nil
}

func TestHandleGetDockStatus(t *testing.T) {
	s := NewServer(&fakeDockClient{side: "right", width: 120})

	_, out, err := s.handleGetDockStatus(context.Background(), nil, GetDockStatusInput{})
	if err != nil {
		t.Fatalf("handleGetDockStatus: %v", err)
	}
	if out.DockSide != "right" || out.PanelWidth != 120 || !out.PanelPresent {
		t.Fatalf("unexpected status: %+v", out)
	}
	if out.LastSyncMS == nil || *out.LastSyncMS != 42 {
		t.Fatalf("last_sync_ms = %v, want 42", out.LastSyncMS)
	}
}

func TestHandleSetPanelWidth(t *testing.T) {
	tests := []struct {
		name        string
		requested   int
		wantWidth   int
		wantClamped bool
	}{
		{name: "in range", requested: 120, wantWidth: 120},
		{name: "above max", requested: 400, wantWidth: 150, wantClamped: true},
		{name: "below min", requested: 10, wantWidth: 80, wantClamped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeDockClient{side: "left", width: 150})
			res, out, err := s.handleSetPanelWidth(context.Background(), nil, SetPanelWidthInput{Width: tt.requested})
			if err != nil {
				t.Fatalf("handleSetPanelWidth: %v", err)
			}
			if out.Width != tt.wantWidth || out.Clamped != tt.wantClamped {
				t.Fatalf("out = %+v, want width %d clamped %v", out, tt.wantWidth, tt.wantClamped)
			}
			text := res.Content[0].(*mcpsdk.TextContent).Text
			if strings.Contains(text, "clamped") != tt.wantClamped {
				t.Fatalf("message %q does not match clamped=%v", text, tt.wantClamped)
			}
		})
	}
}

func TestHandleSetDockSide(t *testing.T) {
	s := NewServer(&fakeDockClient{side: "left", width: 150})

	_, out, err := s.handleSetDockSide(context.Background(), nil, SetDockSideInput{Side: "Right"})
	if err != nil {
		t.Fatalf("handleSetDockSide: %v", err)
	}
	if out.Side != "right" {
		t.Fatalf("side = %q, want right", out.Side)
	}

	_, out, err = s.handleToggleSide(context.Background(), nil, ToggleInput{})
	if err != nil || out.Side != "left" {
		t.Fatalf("toggle = (%+v, %v), want left", out, err)
	}
}

func TestHandlersWrapDaemonErrors(t *testing.T) {
	s := NewServer(&fakeDockClient{err: errors.New("failed to connect to daemon")})

	if _, _, err := s.handleGetDockStatus(context.Background(), nil, GetDockStatusInput{}); err == nil || !strings.Contains(err.Error(), "dock status") {
		t.Fatalf("status err = %v", err)
	}
	if _, _, err := s.handleSetDockSide(context.Background(), nil, SetDockSideInput{Side: "left"}); err == nil {
		t.Fatalf("expected set_dock_side error")
	}
	if _, _, err := s.handleResync(context.Background(), nil, ResyncInput{}); err == nil {
		t.Fatalf("expected resync error")
	}
}
