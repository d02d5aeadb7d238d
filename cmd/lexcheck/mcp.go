package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/chassis"
	"github.com/hazyhaar/lexcheck/pkg/mcpquic"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the evaluation tools over MCP (stdio, or QUIC with --quic)",
	Long: `Mcp exposes evaluate_argument, list_cases, list_catalogs and normalize_text
as MCP tools. By default it speaks JSON-RPC on stdin/stdout for editor and
agent integrations; --quic serves the same tools on a standalone QUIC
listener (self-signed unless chassis.cert_file/key_file are set).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		srv := newMCPServer(reg)

		addr, _ := cmd.Flags().GetString("quic")
		if addr == "" {
			// stdout carries the protocol; logs stay on stderr.
			return server.ServeStdio(srv)
		}

		cert, _, err := chassis.LoadCertificate(cfg.Chassis.CertFile, cfg.Chassis.KeyFile)
		if err != nil {
			return err
		}
		h := mcpquic.NewHandler(srv, cfg.mcpLimits(), logger)
		ln, err := mcpquic.Listen(addr, mcpquic.ServerTLS(cert), h)
		if err != nil {
			return err
		}
		defer ln.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return ln.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().String("quic", "", "serve MCP over QUIC on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
