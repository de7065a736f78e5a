package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vesselinfo/internal/tool"
)

var (
	serveTransport string
	serveAddr      string
	serveBaseURL   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vessel lookup tool over MCP",
	Long: `Serve loads every configured AIS source into memory and exposes the
vessel lookup tool to MCP clients.

Transports:
  stdio  the client launches vesselinfo as a subprocess (default)
  http   streamable HTTP on --addr
  sse    server-sent events on --addr

Example:
  vesselinfo serve --source data/ais_2024
  vesselinfo serve --source 's3://ais-archive/2024/' --transport http --addr :8080
  vesselinfo serve --source 'sqlite:///var/lib/ais.db?table=positions' --max-results 50`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addStoreFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "stdio, http or sse (default from config)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for http and sse (default from config)")
	serveCmd.Flags().StringVar(&serveBaseURL, "base-url", "", "public base URL advertised by the sse transport")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&sourceFlags, "source", nil, "AIS source: file, directory, glob, s3:// or SQL URL (repeatable)")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum records per response (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
}

func runServe(cmd *cobra.Command, args []string) error {
	applyStoreFlags(cfg)
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveBaseURL != "" {
		cfg.Server.BaseURL = serveBaseURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := buildHandler(ctx, cfg)
	if err != nil {
		return err
	}

	return tool.Serve(ctx, tool.NewServer(h, Version), tool.ServeOptions{
		Transport: cfg.Server.Transport,
		Addr:      cfg.Server.Addr,
		BaseURL:   cfg.Server.BaseURL,
		Logger:    logger.Named("server"),
	})
}
