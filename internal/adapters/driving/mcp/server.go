package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/custodia-labs/vidrag/internal/logger"
)

// Version is reported to clients during initialisation.
const Version = "0.1.0"

const shutdownTimeout = 5 * time.Second

// Server exposes retrieval over the Model Context Protocol.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a server for ports. Retrieval is required.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "vidrag",
		Version: Version,
	}, &mcp.ServerOptions{
		Instructions: instructions(ports),
		InitializedHandler: func(_ context.Context, req *mcp.InitializedRequest) {
			logger.Info("MCP client connected (session %s)", req.Session.ID())
		},
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// instructions tells clients what the knowledge base holds and which tools
// are usable.
func instructions(ports *Ports) string {
	text := "Knowledge base of support pages generated from video transcripts. " +
		"Use the retrieve tool to find relevant passages"
	if ports.Chat != nil {
		text += ", or the ask tool for a complete answer"
	}
	return text + ". Pages are listed under " + uriScheme + "pages."
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, "mcp"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	})
	defer stop()

	logger.Info("MCP server listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
