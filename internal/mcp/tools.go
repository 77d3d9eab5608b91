package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetDockStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetDockStatusInput) (*mcpsdk.CallToolResult, DockStatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, DockStatusOutput{}, fmt.Errorf("failed to get dock status: %w", err)
	}
	return nil, DockStatusOutput{
		DockSide:         status.DockSide,
		PanelWidth:       status.PanelWidth,
		MinWidth:         status.MinWidth,
		MaxWidth:         status.MaxWidth,
		PrimaryAttached:  status.PrimaryAttached,
		PanelPresent:     status.PanelPresent,
		MoveGeneration:   status.MoveGeneration,
		ResizeGeneration: status.ResizeGeneration,
		LastSyncMS:       status.LastSyncMS,
		UptimeSeconds:    status.UptimeSeconds,
	}, nil
}

func (s *Server) handleSetPanelWidth(_ context.Context, _ *mcpsdk.CallToolRequest, args SetPanelWidthInput) (*mcpsdk.CallToolResult, PanelWidthOutput, error) {
	width, err := s.client.SetPanelWidth(args.Width)
	if err != nil {
		return nil, PanelWidthOutput{}, fmt.Errorf("failed to set panel width: %w", err)
	}
	out := PanelWidthOutput{
		Requested: args.Width,
		Width:     width,
		Clamped:   width != args.Width,
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: widthMessage(out)},
		},
	}, out, nil
}

func (s *Server) handleSetDockSide(_ context.Context, _ *mcpsdk.CallToolRequest, args SetDockSideInput) (*mcpsdk.CallToolResult, DockSideOutput, error) {
	side, err := s.client.SetDockSide(args.Side)
	if err != nil {
		return nil, DockSideOutput{}, fmt.Errorf("failed to set dock side: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf("Panel docked %s", side)},
		},
	}, DockSideOutput{Side: side}, nil
}

func (s *Server) handleToggleSide(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleInput) (*mcpsdk.CallToolResult, DockSideOutput, error) {
	side, err := s.client.ToggleSide()
	if err != nil {
		return nil, DockSideOutput{}, fmt.Errorf("failed to toggle dock side: %w", err)
	}
	return nil, DockSideOutput{Side: side}, nil
}

func (s *Server) handleToggleWidth(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleInput) (*mcpsdk.CallToolResult, PanelWidthOutput, error) {
	width, err := s.client.ToggleWidth()
	if err != nil {
		return nil, PanelWidthOutput{}, fmt.Errorf("failed to toggle panel width: %w", err)
	}
	return nil, PanelWidthOutput{Width: width}, nil
}

func (s *Server) handleResync(_ context.Context, _ *mcpsdk.CallToolRequest, _ ResyncInput) (*mcpsdk.CallToolResult, ResyncOutput, error) {
	res, err := s.client.Resync()
	if err != nil {
		return nil, ResyncOutput{}, fmt.Errorf("failed to resync: %w", err)
	}
	return nil, ResyncOutput{Applied: res.Applied, Reason: res.Reason}, nil
}

func widthMessage(out PanelWidthOutput) string {
	if out.Clamped {
		return fmt.Sprintf("Panel width set to %d (requested %d, clamped)", out.Width, out.Requested)
	}
	return fmt.Sprintf("Panel width set to %d", out.Width)
}
