package dock

import (
	"strings"
	"sync/atomic"
)

// Side is the edge of the primary window the panel attaches to.
type Side int32

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Opposite returns the other dock side.
func (s Side) Opposite() Side {
	if s == SideRight {
		return SideLeft
	}
	return SideRight
}

// ParseSide maps a persisted or user-supplied value to a Side. Matching is
// case-insensitive; anything other than "right" docks left. The boolean
// reports whether raw was a recognised value.
func ParseSide(raw string) (Side, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(raw), "right"):
		return SideRight, true
	case strings.EqualFold(strings.TrimSpace(raw), "left"):
		return SideLeft, true
	default:
		return SideLeft, false
	}
}

const (
	DefaultMinWidth     = 80
	DefaultMaxWidth     = 150
	DefaultPanelWidth   = 200
	DefaultLeftOverlap  = 16
	DefaultRightOverlap = 4
)

// WidthLimits bounds the panel width in logical pixels.
type WidthLimits struct {
	Min int
	Max int
}

// Clamp normalizes requested into [Min, Max].
func (l WidthLimits) Clamp(requested int) int {
	if requested < l.Min {
		return l.Min
	}
	if requested > l.Max {
		return l.Max
	}
	return requested
}

// Settings is a point-in-time read of the live dock configuration.
type Settings struct {
	PanelWidth int
	Side       Side
}

// Config holds the two live-mutable dock values as independent atomic cells.
// The last writer wins. Consumers re-read both whenever they compute
// geometry.
type Config struct {
	limits WidthLimits
	width  atomic.Int32
	side   atomic.Int32
}

// NewConfig creates a dock configuration. The initial width is clamped into
// limits like any later update.
func NewConfig(limits WidthLimits, initialWidth int, side Side) *Config {
	if limits.Max < limits.Min {
		limits.Max = limits.Min
	}
	c := &Config{limits: limits}
	c.width.Store(int32(limits.Clamp(initialWidth)))
	c.side.Store(int32(side))
	return c
}

// Limits returns the configured width bounds.
func (c *Config) Limits() WidthLimits {
	return c.limits
}

// SetPanelWidth clamps and stores the panel width, returning the stored value.
// Out-of-range input is normalized, never rejected.
func (c *Config) SetPanelWidth(requested int) int {
	w := c.limits.Clamp(requested)
	c.width.Store(int32(w))
	return w
}

// PanelWidth returns the current panel width in logical pixels.
func (c *Config) PanelWidth() int {
	return int(c.width.Load())
}

// SetSide stores the dock side.
func (c *Config) SetSide(side Side) {
	c.side.Store(int32(side))
}

// Side returns the current dock side.
func (c *Config) Side() Side {
	return Side(c.side.Load())
}

// Snapshot reads both live values.
func (c *Config) Snapshot() Settings {
	return Settings{
		PanelWidth: c.PanelWidth(),
		Side:       c.Side(),
	}
}
