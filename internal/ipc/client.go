package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/termdock/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a client for an explicit socket path.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends cmd with payload and decodes the response data into out when
// out is non-nil.
func (c *Client) call(cmd CommandType, payload, out interface{}) error {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return err
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", cmd, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetPanelWidth requests a panel width and returns the clamped width the
// daemon stored.
func (c *Client) SetPanelWidth(width int) (int, error) {
	var data WidthData
	if err := c.call(CommandSetPanelWidth, SetPanelWidthPayload{Width: width}, &data); err != nil {
		return 0, err
	}
	return data.Width, nil
}

// SetDockSide requests a dock side and returns the side the daemon applied.
func (c *Client) SetDockSide(side string) (string, error) {
	var data SideData
	if err := c.call(CommandSetDockSide, SetDockSidePayload{Side: side}, &data); err != nil {
		return "", err
	}
	return data.Side, nil
}

// ToggleSide flips the dock side.
func (c *Client) ToggleSide() (string, error) {
	var data SideData
	if err := c.call(CommandToggleSide, nil, &data); err != nil {
		return "", err
	}
	return data.Side, nil
}

// ToggleWidth switches between the collapsed and expanded panel width.
func (c *Client) ToggleWidth() (int, error) {
	var data WidthData
	if err := c.call(CommandToggleWidth, nil, &data); err != nil {
		return 0, err
	}
	return data.Width, nil
}

// Resync forces the daemon to recompute and apply the panel rectangle.
func (c *Client) Resync() (*ResyncData, error) {
	var data ResyncData
	if err := c.call(CommandResync, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
