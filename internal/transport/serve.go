package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"lifectl/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
)

// ServerConfig configures the SSE listener of a Server.
type ServerConfig struct {
	Host string
	Port int
}

// Server exposes a Registry over MCP/SSE so a dependent running in another
// process can discover and call the published surfaces.
type Server struct {
	config    ServerConfig
	registry  *Registry
	sseServer *server.SSEServer
	mu        sync.Mutex
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
	return c
}

// SSEURL returns the URL a client dials to reach a server listening on c.
func (c ServerConfig) SSEURL() string {
	c = c.withDefaults()
	return fmt.Sprintf("http://%s:%d/sse", c.Host, c.Port)
}

// NewServer creates a server for reg. Defaults: localhost:8090.
func NewServer(reg *Registry, config ServerConfig) *Server {
	return &Server{config: config.withDefaults(), registry: reg}
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.sseServer != nil {
		s.mu.Unlock()
		return fmt.Errorf("transport server already started")
	}

	baseURL := fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
	sseServer := server.NewSSEServer(
		s.registry.MCPServer(),
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)
	s.sseServer = sseServer
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logging.Info("Transport", "Serving published endpoints on %s", addr)

	go func() {
		if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Transport", err, "SSE server error")
		}
	}()

	return nil
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	sseServer := s.sseServer
	s.sseServer = nil
	s.mu.Unlock()

	if sseServer == nil {
		return fmt.Errorf("transport server not started")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sseServer.Shutdown(shutdownCtx)
}

// Endpoint returns the SSE URL dependents dial.
func (s *Server) Endpoint() string {
	return s.config.SSEURL()
}
