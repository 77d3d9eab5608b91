package mcp

// GetDockStatusInput is the input for the get_dock_status tool.
type GetDockStatusInput struct{}

// DockStatusOutput is the output for the get_dock_status tool.
type DockStatusOutput struct {
	DockSide         string `json:"dock_side"`
	PanelWidth       int    `json:"panel_width"`
	MinWidth         int    `json:"min_width"`
	MaxWidth         int    `json:"max_width"`
	PrimaryAttached  bool   `json:"primary_attached"`
	PanelPresent     bool   `json:"panel_present"`
	MoveGeneration   uint64 `json:"move_generation"`
	ResizeGeneration uint64 `json:"resize_generation"`
	LastSyncMS       *int64 `json:"last_sync_ms,omitempty"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

// SetPanelWidthInput is the input for the set_panel_width tool.
type SetPanelWidthInput struct {
	Width int `json:"width" jsonschema:"required,Requested panel width in logical pixels. Values outside the configured min/max are clamped."`
}

// PanelWidthOutput reports the width the daemon stored.
type PanelWidthOutput struct {
	Requested int  `json:"requested,omitempty"`
	Width     int  `json:"width"`
	Clamped   bool `json:"clamped"`
}

// SetDockSideInput is the input for the set_dock_side tool.
type SetDockSideInput struct {
	Side string `json:"side" jsonschema:"required,Edge of the primary window to dock to: left or right. Anything other than right docks left."`
}

// DockSideOutput reports the side the daemon applied.
type DockSideOutput struct {
	Side string `json:"side"`
}

// ToggleInput is the input for the toggle tools.
type ToggleInput struct{}

// ResyncInput is the input for the resync_dock tool.
type ResyncInput struct{}

// ResyncOutput is the output for the resync_dock tool.
type ResyncOutput struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}
