package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/termdock/internal/dock"
	"github.com/1broseidon/termdock/internal/runtimepath"
)

const handlerTimeout = 5 * time.Second

// Controller is the dock engine surface exposed over IPC.
type Controller interface {
	Config() *dock.Config
	SetPanelWidth(ctx context.Context, width int) (int, error)
	SetDockSide(ctx context.Context, side string) (dock.Side, error)
	ToggleSide(ctx context.Context) (dock.Side, error)
	TogglePanelWidth(ctx context.Context) (int, error)
	Resync(ctx context.Context) error
	Status(ctx context.Context) (dock.Status, error)
}

// ServerConfig configures an IPC server.
type ServerConfig struct {
	// SocketPath overrides the runtime directory socket.
	SocketPath string
	// ReloadChan receives a non-blocking notification on RELOAD.
	ReloadChan chan<- struct{}
	Logger     *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	controller   Controller
	logger       *slog.Logger
	startTime    time.Time
	reloadChan   chan<- struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig, controller Controller) (*Server, error) {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		controller: controller,
		logger:     logger,
		startTime:  time.Now(),
		reloadChan: cfg.ReloadChan,
	}, nil
}

// SocketPath returns the socket the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// Run starts the server and stops it when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)

	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandSetPanelWidth:
		return s.handleSetPanelWidth(ctx, req)
	case CommandSetDockSide:
		return s.handleSetDockSide(ctx, req)
	case CommandResync:
		return s.handleResync(ctx)
	case CommandToggleSide:
		side, err := s.controller.ToggleSide(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to toggle dock side: %v", err))
		}
		return okResponse(SideData{Side: side.String()})
	case CommandToggleWidth:
		width, err := s.controller.TogglePanelWidth(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to toggle panel width: %v", err))
		}
		return okResponse(WidthData{Width: width})
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload asks the daemon to reload its configuration file.
func (s *Server) handleReload() *Response {
	if s.reloadChan == nil {
		return NewErrorResponse("Reload is not supported")
	}
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}
	return okResponse(nil)
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus(ctx context.Context) *Response {
	st, err := s.controller.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to read status: %v", err))
	}
	limits := s.controller.Config().Limits()

	status := StatusData{
		DockSide:         st.Side.String(),
		PanelWidth:       st.PanelWidth,
		MinWidth:         limits.Min,
		MaxWidth:         limits.Max,
		PrimaryAttached:  st.PrimaryAttached,
		PanelPresent:     st.PanelPresent,
		MoveGeneration:   st.MoveGeneration,
		ResizeGeneration: st.ResizeGeneration,
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:    true,
	}
	if st.Synced {
		ms := st.LastSync.Milliseconds()
		status.LastSyncMS = &ms
	}
	return okResponse(status)
}

func (s *Server) handleSetPanelWidth(ctx context.Context, req *Request) *Response {
	var payload SetPanelWidthPayload
	if err := req.DecodePayload(&payload); err != nil {
		return NewErrorResponse(err.Error())
	}
	width, err := s.controller.SetPanelWidth(ctx, payload.Width)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set panel width: %v", err))
	}
	return okResponse(WidthData{Width: width})
}

func (s *Server) handleSetDockSide(ctx context.Context, req *Request) *Response {
	var payload SetDockSidePayload
	if err := req.DecodePayload(&payload); err != nil {
		return NewErrorResponse(err.Error())
	}
	side, err := s.controller.SetDockSide(ctx, payload.Side)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set dock side: %v", err))
	}
	return okResponse(SideData{Side: side.String()})
}

func (s *Server) handleResync(ctx context.Context) *Response {
	err := s.controller.Resync(ctx)
	switch {
	case err == nil:
		return okResponse(ResyncData{Applied: true})
	case errors.Is(err, dock.ErrNotPresent), errors.Is(err, dock.ErrPrimaryUnavailable):
		return okResponse(ResyncData{Applied: false, Reason: err.Error()})
	default:
		return NewErrorResponse(fmt.Sprintf("Failed to resync: %v", err))
	}
}

func okResponse(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
