package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okanca/streamgate/internal/catalog"
	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/config"
	"github.com/okanca/streamgate/internal/directory"
	"github.com/okanca/streamgate/internal/grants"
	"github.com/okanca/streamgate/internal/observability"
	"github.com/okanca/streamgate/internal/server"
	"github.com/okanca/streamgate/internal/visibility"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the decision API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}
	config.BindServeFlags(cmd, v)
	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs, err := observability.New(ctx, observability.ObsConfig{
		LogLevel:       cfg.Observability.LogLevel,
		LogFormat:      cfg.Observability.LogFormat,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPProtocol:   cfg.Observability.OTLPProtocol,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	obs.ServeMetrics(ctx, cfg.Observability.MetricsAddr)

	backend, err := physical.New(ctx, cfg.Storage.Catalog.Backend, cfg.Storage.Catalog.Config, obs.Metrics)
	if err != nil {
		return fmt.Errorf("init catalog backend: %w", err)
	}
	cat, err := catalog.New(backend, obs.Metrics)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	obs.Shutdown.Register("catalog", func(ctx context.Context) error {
		return cat.Close()
	})

	dir, err := directory.New(ctx, cfg.Storage.Directory.Backend, cfg.Storage.Directory.Config)
	if err != nil {
		return fmt.Errorf("init directory: %w", err)
	}
	obs.Shutdown.Register("directory", func(ctx context.Context) error {
		return dir.Close()
	})

	src, err := grants.New(ctx, cfg.Storage.Grants.Backend, cfg.Storage.Grants.Config)
	if err != nil {
		return fmt.Errorf("init grant source: %w", err)
	}
	obs.Shutdown.Register("grants", func(ctx context.Context) error {
		return src.Close()
	})

	slog.Info("storage initialized",
		"catalog_backend", cfg.Storage.Catalog.Backend,
		"directory_backend", cfg.Storage.Directory.Backend,
		"grants_backend", cfg.Storage.Grants.Backend,
	)

	resolver := visibility.NewResolver(
		newPolicy(cfg.Policy), dir, src, cat, obs.Metrics,
		visibility.WithResolveTimeout(cfg.Policy.ResolveTimeout),
	)

	srv, err := server.New(cfg.Server.Addr, obs, resolver, cat, server.Defaults{
		AnonymousPermissions:     cfg.Policy.AnonymousPermissions,
		AuthenticatedPermissions: cfg.Policy.AuthenticatedPermissions,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := obs.Close(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("serving", "addr", srv.Addr(), "metrics", cfg.Observability.MetricsAddr)
	return srv.Serve()
}
