package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload        CommandType = "RELOAD"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandSetPanelWidth CommandType = "SET_PANEL_WIDTH"
	CommandSetDockSide   CommandType = "SET_DOCK_SIDE"
	CommandResync        CommandType = "RESYNC"
	CommandToggleSide    CommandType = "TOGGLE_SIDE"
	CommandToggleWidth   CommandType = "TOGGLE_WIDTH"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DockSide         string `json:"dock_side"`
	PanelWidth       int    `json:"panel_width"`
	MinWidth         int    `json:"min_width"`
	MaxWidth         int    `json:"max_width"`
	PrimaryAttached  bool   `json:"primary_attached"`
	PanelPresent     bool   `json:"panel_present"`
	MoveGeneration   uint64 `json:"move_generation"`
	ResizeGeneration uint64 `json:"resize_generation"`
	// LastSyncMS is the last sync time in milliseconds since the engine
	// started; absent before the first sync.
	LastSyncMS    *int64 `json:"last_sync_ms,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

// SetPanelWidthPayload represents the payload for SET_PANEL_WIDTH.
type SetPanelWidthPayload struct {
	Width int `json:"width"`
}

// SetDockSidePayload represents the payload for SET_DOCK_SIDE.
type SetDockSidePayload struct {
	Side string `json:"side"`
}

// WidthData is returned by SET_PANEL_WIDTH and TOGGLE_WIDTH with the stored width.
type WidthData struct {
	Width int `json:"width"`
}

// SideData is returned by SET_DOCK_SIDE and TOGGLE_SIDE with the applied side.
type SideData struct {
	Side string `json:"side"`
}

// ResyncData reports whether a RESYNC reached the window system.
type ResyncData struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// NewRequest builds a request, marshalling payload when it is non-nil.
func NewRequest(cmd CommandType, payload interface{}) (*Request, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		req.Payload = bytes
	}
	return req, nil
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

// DecodePayload unmarshals the request payload into v.
func (r *Request) DecodePayload(v interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s requires a payload", r.Command)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", r.Command, err)
	}
	return nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
