package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/termdock/internal/ipc"
)

const (
	ServerName    = "termdock"
	ServerVersion = "0.1.0"
)

// DockClient is the daemon surface the MCP tools call. *ipc.Client
// implements it.
type DockClient interface {
	GetStatus() (*ipc.StatusData, error)
	SetPanelWidth(width int) (int, error)
	SetDockSide(side string) (string, error)
	ToggleSide() (string, error)
	ToggleWidth() (int, error)
	Resync() (*ipc.ResyncData, error)
}

var _ DockClient = (*ipc.Client)(nil)

// Server is the MCP server exposing the dock controls of a running daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DockClient
}

// NewServer creates a new MCP server that talks to the daemon over IPC.
func NewServer(client DockClient) *Server {
	if client == nil {
		client = ipc.NewClient()
	}
	s := &Server{client: client}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_dock_status",
		Description: "Report the docked panel state: dock side, panel width and its limits, whether the primary and panel windows are present, and when the panel was last synced.",
	}, s.handleGetDockStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_panel_width",
		Description: "Set the panel width in logical pixels. The daemon clamps it to the configured range and re-docks the panel immediately. Returns the stored width.",
	}, s.handleSetPanelWidth)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_dock_side",
		Description: "Dock the panel to the left or right edge of the primary window. The choice is persisted and the panel is created if it is missing.",
	}, s.handleSetDockSide)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_dock_side",
		Description: "Move the panel to the opposite edge of the primary window.",
	}, s.handleToggleSide)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_panel_width",
		Description: "Switch the panel between its collapsed (minimum) and expanded (maximum) width.",
	}, s.handleToggleWidth)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resync_dock",
		Description: "Recompute the panel rectangle from the primary window and apply it now.",
	}, s.handleResync)
}
