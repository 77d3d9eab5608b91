package daemon

import (
	"testing"

	"github.com/1broseidon/termdock/internal/x11"
)

func TestClassify(t *testing.T) {
	base := x11.Geometry{X: 100, Y: 50, Width: 800, Height: 600}

	tests := []struct {
		name        string
		prev        x11.Geometry
		next        x11.Geometry
		known       bool
		wantMoved   bool
		wantResized bool
	}{
		{name: "first event", next: base, known: false, wantMoved: true, wantResized: true},
		{name: "unchanged", prev: base, next: base, known: true},
		{name: "moved", prev: base, next: x11.Geometry{X: 120, Y: 50, Width: 800, Height: 600}, known: true, wantMoved: true},
		{name: "moved vertically", prev: base, next: x11.Geometry{X: 100, Y: 10, Width: 800, Height: 600}, known: true, wantMoved: true},
		{name: "resized", prev: base, next: x11.Geometry{X: 100, Y: 50, Width: 640, Height: 600}, known: true, wantResized: true},
		{name: "resized from left edge", prev: base, next: x11.Geometry{X: 90, Y: 50, Width: 810, Height: 600}, known: true, wantMoved: true, wantResized: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prev, tt.next, tt.known)
			if got.Has(ChangeMoved) != tt.wantMoved {
				t.Errorf("moved = %v, want %v", got.Has(ChangeMoved), tt.wantMoved)
			}
			if got.Has(ChangeResized) != tt.wantResized {
				t.Errorf("resized = %v, want %v", got.Has(ChangeResized), tt.wantResized)
			}
		})
	}
}
