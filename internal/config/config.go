package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/termdock/internal/dock"
)

const (
	DefaultPanelClass     = "termdock-panel"
	DefaultScanIntervalMS = 1000
	DefaultSpawnTimeoutMS = 5000
	minScanIntervalMS     = 100
)

// PrimaryConfig selects the window the panel follows.
type PrimaryConfig struct {
	// Class is the WM_CLASS of the primary window. Empty means the window
	// that is active when the daemon starts.
	Class string `yaml:"class"`
}

// PanelConfig describes the docked panel window.
type PanelConfig struct {
	// Class is the WM_CLASS used to recognise the panel client.
	Class string `yaml:"class"`
	// Command starts the panel when no client with Class exists.
	// Empty means termdock only adopts an already running panel.
	Command string `yaml:"command,omitempty"`

	DefaultWidth int `yaml:"default_width"` // logical pixels, clamped to [min_width, max_width]
	MinWidth     int `yaml:"min_width"`
	MaxWidth     int `yaml:"max_width"`

	LeftOverlap  int `yaml:"left_overlap"`
	RightOverlap int `yaml:"right_overlap"`
}

// TimingConfig holds the scheduler delays in milliseconds.
type TimingConfig struct {
	MoveDeferMS    int `yaml:"move_defer_ms"`
	MoveSettleMS   int `yaml:"move_settle_ms"`
	ResizeSettleMS int `yaml:"resize_settle_ms"`
	ThrottleMS     int `yaml:"throttle_ms"`
}

// HotkeysConfig binds optional global key combinations.
type HotkeysConfig struct {
	ToggleSide  string `yaml:"toggle_side,omitempty"`
	ToggleWidth string `yaml:"toggle_width,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	Primary PrimaryConfig `yaml:"primary"`
	Panel   PanelConfig   `yaml:"panel"`
	Timing  TimingConfig  `yaml:"timing"`
	Hotkeys HotkeysConfig `yaml:"hotkeys"`

	// ScaleFactor overrides the detected display scale. 0 means detect.
	ScaleFactor float64 `yaml:"scale_factor"`

	// RestorePrimarySize resizes the primary to its last known size on start.
	// Default: true
	RestorePrimarySize *bool `yaml:"restore_primary_size"`

	ScanIntervalMS int    `yaml:"scan_interval_ms"`
	SpawnTimeoutMS int    `yaml:"spawn_timeout_ms"`
	LogLevel       string `yaml:"log_level"`
}

// ValidationError reports an invalid value at a YAML path, with the file
// location when it is known.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	timing := dock.DefaultTiming()
	restore := true
	return &Config{
		Panel: PanelConfig{
			Class:        DefaultPanelClass,
			DefaultWidth: dock.DefaultPanelWidth,
			MinWidth:     dock.DefaultMinWidth,
			MaxWidth:     dock.DefaultMaxWidth,
			LeftOverlap:  dock.DefaultLeftOverlap,
			RightOverlap: dock.DefaultRightOverlap,
		},
		Timing: TimingConfig{
			MoveDeferMS:    int(timing.MoveDefer / time.Millisecond),
			MoveSettleMS:   int(timing.MoveSettle / time.Millisecond),
			ResizeSettleMS: int(timing.ResizeSettle / time.Millisecond),
			ThrottleMS:     int(timing.Throttle / time.Millisecond),
		},
		RestorePrimarySize: &restore,
		ScanIntervalMS:     DefaultScanIntervalMS,
		SpawnTimeoutMS:     DefaultSpawnTimeoutMS,
		LogLevel:           "info",
	}
}

// GetRestorePrimarySize returns the effective value, defaulting to true.
func (c *Config) GetRestorePrimarySize() bool {
	if c == nil || c.RestorePrimarySize == nil {
		return true
	}
	return *c.RestorePrimarySize
}

// WidthLimits returns the panel width bounds.
func (c *Config) WidthLimits() dock.WidthLimits {
	return dock.WidthLimits{Min: c.Panel.MinWidth, Max: c.Panel.MaxWidth}
}

// Geometry returns the overlap constants for the geometry calculator.
func (c *Config) Geometry() dock.Geometry {
	return dock.Geometry{LeftOverlap: c.Panel.LeftOverlap, RightOverlap: c.Panel.RightOverlap}
}

// SchedulerTiming converts the millisecond settings into scheduler timing.
func (c *Config) SchedulerTiming() dock.Timing {
	return dock.Timing{
		MoveDefer:    time.Duration(c.Timing.MoveDeferMS) * time.Millisecond,
		MoveSettle:   time.Duration(c.Timing.MoveSettleMS) * time.Millisecond,
		ResizeSettle: time.Duration(c.Timing.ResizeSettleMS) * time.Millisecond,
		Throttle:     time.Duration(c.Timing.ThrottleMS) * time.Millisecond,
	}
}

// ScanInterval is the reconciler period.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMS) * time.Millisecond
}

// SpawnTimeout is how long a started panel may take to map before the panel
// command is started again.
func (c *Config) SpawnTimeout() time.Duration {
	return time.Duration(c.SpawnTimeoutMS) * time.Millisecond
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Panel.Class) == "" {
		return &ValidationError{Path: "panel.class", Err: fmt.Errorf("panel.class is required")}
	}
	if c.Panel.MinWidth <= 0 {
		return &ValidationError{Path: "panel.min_width", Err: fmt.Errorf("min_width must be > 0")}
	}
	if c.Panel.MaxWidth < c.Panel.MinWidth {
		return &ValidationError{Path: "panel.max_width", Err: fmt.Errorf("max_width must be >= min_width (%d)", c.Panel.MinWidth)}
	}
	if c.Panel.DefaultWidth <= 0 {
		return &ValidationError{Path: "panel.default_width", Err: fmt.Errorf("default_width must be > 0")}
	}
	if c.Panel.LeftOverlap < 0 {
		return &ValidationError{Path: "panel.left_overlap", Err: fmt.Errorf("left_overlap must be >= 0")}
	}
	if c.Panel.RightOverlap < 0 {
		return &ValidationError{Path: "panel.right_overlap", Err: fmt.Errorf("right_overlap must be >= 0")}
	}

	timings := []struct {
		path  string
		value int
	}{
		{"timing.move_defer_ms", c.Timing.MoveDeferMS},
		{"timing.move_settle_ms", c.Timing.MoveSettleMS},
		{"timing.resize_settle_ms", c.Timing.ResizeSettleMS},
		{"timing.throttle_ms", c.Timing.ThrottleMS},
	}
	for _, tm := range timings {
		if tm.value <= 0 {
			return &ValidationError{Path: tm.path, Err: fmt.Errorf("value must be > 0")}
		}
	}
	if c.Timing.MoveSettleMS < c.Timing.MoveDeferMS {
		return &ValidationError{Path: "timing.move_settle_ms", Err: fmt.Errorf("move_settle_ms must be >= move_defer_ms (%d)", c.Timing.MoveDeferMS)}
	}

	if c.ScaleFactor < 0 {
		return &ValidationError{Path: "scale_factor", Err: fmt.Errorf("scale_factor must be >= 0")}
	}
	if c.ScanIntervalMS < minScanIntervalMS {
		return &ValidationError{Path: "scan_interval_ms", Err: fmt.Errorf("scan_interval_ms must be >= %d", minScanIntervalMS)}
	}
	if c.SpawnTimeoutMS <= 0 {
		return &ValidationError{Path: "spawn_timeout_ms", Err: fmt.Errorf("spawn_timeout_ms must be > 0")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Hotkeys.ToggleSide != "" && c.Hotkeys.ToggleSide == c.Hotkeys.ToggleWidth {
		return &ValidationError{Path: "hotkeys.toggle_width", Err: fmt.Errorf("toggle_width must differ from toggle_side")}
	}

	if warnings := c.validationWarnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}

	return nil
}

func (c *Config) validationWarnings() []string {
	if c == nil {
		return nil
	}

	var warnings []string
	if strings.TrimSpace(c.Panel.Command) == "" {
		warnings = append(warnings, "panel.command is empty; the panel must be started separately")
	}
	return warnings
}
