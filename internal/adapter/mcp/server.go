// Package mcp exposes the task operations as Model Context Protocol tools
// and resources over streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/taskboard/internal/domain/task"
)

// TaskService is the subset of the task service the tools call.
type TaskService interface {
	List(ctx context.Context, status *task.Status) ([]task.Task, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	Create(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	Update(ctx context.Context, id string, req task.UpdateRequest) (*task.Task, error)
	Delete(ctx context.Context, id string) error
}

// ServerConfig holds the MCP server identity and optional standalone address.
type ServerConfig struct {
	Addr    string // standalone listen address; empty when mounted on the API router
	Name    string
	Version string
	APIKey  string
}

// ServerDeps carries the services the tools delegate to.
type ServerDeps struct {
	Tasks TaskService
}

// Server wraps an mcp-go server with the task tools registered.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	http      *mcpserver.StreamableHTTPServer
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	s.http = mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithStateLess(true))
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler guarded by the API key.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, s.http)
}

// Start listens on cfg.Addr in the background. It is a no-op when Addr is
// empty, in which case Handler is mounted on the main router instead.
func (s *Server) Start() error {
	if s.cfg.Addr == "" {
		return nil
	}
	go func() {
		if err := s.http.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "addr", s.cfg.Addr, "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", s.cfg.Addr)
	return nil
}

// Stop shuts the standalone listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.cfg.Addr == "" {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("mcp shutdown: %w", err)
	}
	return nil
}
