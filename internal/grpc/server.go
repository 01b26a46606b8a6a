// Package grpc provides the gRPC server that agents inside sandbox VMs
// connect to.
package grpc

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	sandstormv1 "github.com/habbes/sandstorm/proto/gen/go/sandstorm/v1"

	"github.com/habbes/sandstorm/internal/dispatch"
	"github.com/habbes/sandstorm/internal/registry"
	"github.com/habbes/sandstorm/internal/store"

	"google.golang.org/grpc"
)

// Server wraps a gRPC server that sandbox agents connect to.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	handler    *AgentHandler
	logger     *slog.Logger
}

// NewServer creates a gRPC server listening on addr and registers the
// AgentService handler.
func NewServer(
	addr string,
	reg *registry.Registry,
	disp *dispatch.Dispatcher,
	st store.Store,
	logger *slog.Logger,
	heartbeatInterval time.Duration,
	opts ...grpc.ServerOption,
) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	gs := grpc.NewServer(opts...)

	handler := NewAgentHandler(reg, disp, st, logger, heartbeatInterval)
	sandstormv1.RegisterAgentServiceServer(gs, handler)

	s := &Server{
		listener:   lis,
		grpcServer: gs,
		handler:    handler,
		logger:     logger.With("component", "grpc"),
	}

	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start begins accepting connections. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", "addr", s.listener.Addr().String())
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown of the gRPC server.
func (s *Server) Stop() {
	s.logger.Info("gRPC server stopping")
	s.grpcServer.GracefulStop()
}
