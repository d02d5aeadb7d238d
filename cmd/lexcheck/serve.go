package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/lexcheck/pkg/api"
	"github.com/hazyhaar/lexcheck/pkg/catalog"
	"github.com/hazyhaar/lexcheck/pkg/chassis"
	"github.com/hazyhaar/lexcheck/pkg/importer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (and the QUIC chassis when enabled)",
	Long: `Serve loads every catalog under catalogs_dir and exposes the evaluation API
over HTTP. With chassis.enabled, it also serves HTTP/3 and MCP over QUIC on
chassis.addr. SIGHUP reloads the catalogs; SIGINT/SIGTERM shut down
gracefully. Catalog sources are checked every check_interval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	logger.Info("catalogs loaded", "count", reg.Count(), "entries", reg.TotalEntries())

	mcpSrv := newMCPServer(reg)
	router := api.NewRouter(reg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGHUP: hot reload catalogs.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				logger.Info("SIGHUP received, reloading catalogs")
				if err := reg.Reload(); err != nil {
					logger.Error("reload failed", "error", err)
					continue
				}
				logger.Info("catalogs reloaded", "count", reg.Count(), "entries", reg.TotalEntries())
			}
		}
	}()

	if cfg.CheckInterval > 0 {
		sdb, err := openSources()
		if err != nil {
			logger.Warn("source checks disabled", "error", err)
		} else {
			defer sdb.Close()
			go importer.NewChecker(sdb, cfg.CatalogsDir, logger).Run(ctx, cfg.CheckInterval)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("lexcheck listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var ch *chassis.Server
	if cfg.Chassis.Enabled {
		ch, err = chassis.New(chassis.Config{
			Addr:      cfg.Chassis.Addr,
			CertFile:  cfg.Chassis.CertFile,
			KeyFile:   cfg.Chassis.KeyFile,
			Handler:   router,
			MCPServer: mcpSrv,
			MCPLimits: cfg.mcpLimits(),
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := ch.Start(ctx); err != nil {
				errCh <- fmt.Errorf("chassis: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ch != nil {
		if err := ch.Stop(shutdownCtx); err != nil {
			logger.Warn("chassis stop", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	return err
}

// openRegistry loads every catalog under cfg.CatalogsDir.
func openRegistry() (*catalog.Registry, error) {
	reg := catalog.NewRegistry(cfg.CatalogsDir)
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	return reg, nil
}

// openSources opens the source registry and seeds it from the config.
func openSources() (*importer.SourceDB, error) {
	if err := os.MkdirAll(cfg.CatalogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalogs dir: %w", err)
	}
	sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		return nil, err
	}
	if err := sdb.Seed(cfg.Sources); err != nil {
		sdb.Close()
		return nil, err
	}
	return sdb, nil
}

func newMCPServer(reg *catalog.Registry) *server.MCPServer {
	srv := server.NewMCPServer("lexcheck", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, reg, logger)
	return srv
}
