package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Transports accepted by Serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

const shutdownTimeout = 5 * time.Second

// NewServer registers the handler's tool on a new MCP server.
func NewServer(h *Handler, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"vesselinfo",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(h.Tool(), h.Handle)
	return s
}

// ServeOptions selects the transport.
type ServeOptions struct {
	Transport string
	Addr      string
	BaseURL   string // public URL advertised by the SSE transport
	Logger    *zap.Logger
}

// Serve runs s on the chosen transport until ctx is canceled.
func Serve(ctx context.Context, s *server.MCPServer, opts ServeOptions) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	switch opts.Transport {
	case "", TransportStdio:
		log.Info("serving MCP over stdio")
		stdio := server.NewStdioServer(s)
		stdio.SetErrorLogger(zap.NewStdLog(log.Named("stdio")))
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport: %w", err)
		}
		return nil

	case TransportHTTP:
		httpServer := server.NewStreamableHTTPServer(s, server.WithStateLess(true))
		log.Info("serving MCP over streamable HTTP", zap.String("addr", opts.Addr))
		return runUntilDone(ctx, func() error { return httpServer.Start(opts.Addr) }, httpServer.Shutdown)

	case TransportSSE:
		var sseOpts []server.SSEOption
		if opts.BaseURL != "" {
			sseOpts = append(sseOpts, server.WithBaseURL(opts.BaseURL))
		}
		sseServer := server.NewSSEServer(s, sseOpts...)
		log.Info("serving MCP over SSE", zap.String("addr", opts.Addr))
		return runUntilDone(ctx, func() error { return sseServer.Start(opts.Addr) }, sseServer.Shutdown)

	default:
		return fmt.Errorf("unknown transport %q (want stdio, http or sse)", opts.Transport)
	}
}

func runUntilDone(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}
