package dock

import (
	"fmt"
	"math"
)

// Space tags which pixel space a rectangle is expressed in.
type Space uint8

const (
	Physical Space = iota
	Logical
)

func (s Space) String() string {
	if s == Logical {
		return "logical"
	}
	return "physical"
}

// WindowRect is a window position and size. Geometry sync works in physical
// (device) pixels; the panel width setting is logical.
type WindowRect struct {
	X      int
	Y      int
	Width  uint32
	Height uint32
	Space  Space
}

func (r WindowRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d (%s)", r.Width, r.Height, r.X, r.Y, r.Space)
}

// Empty reports whether the rectangle has no area.
func (r WindowRect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// SamePosition reports whether both rectangles share their origin.
func (r WindowRect) SamePosition(o WindowRect) bool {
	return r.X == o.X && r.Y == o.Y
}

// SameSize reports whether both rectangles share their size.
func (r WindowRect) SameSize(o WindowRect) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// ToPhysical converts a logical rectangle to device pixels.
func (r WindowRect) ToPhysical(scale float64) WindowRect {
	if r.Space == Physical {
		return r
	}
	scale = normalizeScale(scale)
	return WindowRect{
		X:      int(math.Round(float64(r.X) * scale)),
		Y:      int(math.Round(float64(r.Y) * scale)),
		Width:  uint32(math.Round(float64(r.Width) * scale)),
		Height: uint32(math.Round(float64(r.Height) * scale)),
		Space:  Physical,
	}
}

// ToLogical converts a physical rectangle to scale-independent pixels.
func (r WindowRect) ToLogical(scale float64) WindowRect {
	if r.Space == Logical {
		return r
	}
	scale = normalizeScale(scale)
	return WindowRect{
		X:      int(math.Round(float64(r.X) / scale)),
		Y:      int(math.Round(float64(r.Y) / scale)),
		Width:  uint32(math.Round(float64(r.Width) / scale)),
		Height: uint32(math.Round(float64(r.Height) / scale)),
		Space:  Logical,
	}
}

func normalizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 1.0
	}
	return scale
}

// Geometry maps the primary window rectangle to the panel rectangle.
//
// The overlaps widen the panel so no seam shows between the two windows.
// They are empirical values for typical decorations and shadows; tune them
// for the window manager in use.
type Geometry struct {
	LeftOverlap  int
	RightOverlap int
}

// DefaultGeometry returns the stock overlap values.
func DefaultGeometry() Geometry {
	return Geometry{
		LeftOverlap:  DefaultLeftOverlap,
		RightOverlap: DefaultRightOverlap,
	}
}

// Compute returns the panel rectangle in physical pixels for a primary
// rectangle in physical pixels. The panel width is converted using the
// panel's own scale factor, which may differ from the primary's; a missing
// panel scale falls back to the primary's.
//
// It returns false when the primary has no area (not laid out yet or
// minimized). Callers must keep the panel's current geometry in that case
// rather than collapse it.
func (g Geometry) Compute(primary WindowRect, primaryScale float64, s Settings, panelScale float64) (WindowRect, bool) {
	primary = primary.ToPhysical(primaryScale)
	if primary.Empty() {
		return WindowRect{}, false
	}

	if panelScale <= 0 {
		panelScale = primaryScale
	}
	widthPhys := int(math.Round(float64(s.PanelWidth) * normalizeScale(panelScale)))

	var x, width int
	if s.Side == SideRight {
		x = primary.X + int(primary.Width)
		width = widthPhys + g.RightOverlap
	} else {
		x = max(0, primary.X-widthPhys)
		width = widthPhys + g.LeftOverlap
	}

	return WindowRect{
		X:      x,
		Y:      primary.Y,
		Width:  uint32(max(width, 1)),
		Height: primary.Height,
		Space:  Physical,
	}, true
}
