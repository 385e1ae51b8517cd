package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okanca/streamgate/internal/catalog"
	"github.com/okanca/streamgate/internal/catalog/physical"
	_ "github.com/okanca/streamgate/internal/catalog/physical/badger"
	_ "github.com/okanca/streamgate/internal/catalog/physical/memory"
	_ "github.com/okanca/streamgate/internal/catalog/physical/sqlite"
	"github.com/okanca/streamgate/internal/config"
	"github.com/okanca/streamgate/internal/directory"
	"github.com/okanca/streamgate/internal/grants"
	"github.com/okanca/streamgate/internal/observability"
	"github.com/okanca/streamgate/internal/visibility"
)

// stack wires the catalog, directory, and grant source the way the
// config asks for. One-shot commands build it, use it, and close it.
type stack struct {
	cfg     config.Config
	catalog *catalog.Catalog
	dir     directory.Directory
	grants  grants.Source
	metrics *observability.Metrics
}

func openStack(ctx context.Context, cmd *cobra.Command, v *viper.Viper) (*stack, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	metrics := observability.NewMetrics()

	backend, err := physical.New(ctx, cfg.Storage.Catalog.Backend, cfg.Storage.Catalog.Config, metrics)
	if err != nil {
		return nil, fmt.Errorf("init catalog backend: %w", err)
	}
	cat, err := catalog.New(backend, metrics)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	dir, err := directory.New(ctx, cfg.Storage.Directory.Backend, cfg.Storage.Directory.Config)
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("init directory: %w", err)
	}

	src, err := grants.New(ctx, cfg.Storage.Grants.Backend, cfg.Storage.Grants.Config)
	if err != nil {
		_ = dir.Close()
		_ = cat.Close()
		return nil, fmt.Errorf("init grant source: %w", err)
	}

	return &stack{cfg: cfg, catalog: cat, dir: dir, grants: src, metrics: metrics}, nil
}

func (s *stack) Close() {
	_ = s.grants.Close()
	_ = s.dir.Close()
	_ = s.catalog.Close()
}

func (s *stack) resolver() *visibility.Resolver {
	return visibility.NewResolver(
		newPolicy(s.cfg.Policy), s.dir, s.grants, s.catalog, s.metrics,
		visibility.WithResolveTimeout(s.cfg.Policy.ResolveTimeout),
	)
}

func newPolicy(pc config.PolicyConfig) *visibility.Policy {
	opts := []visibility.PolicyOption{}
	if len(pc.BypassRoles) > 0 {
		opts = append(opts, visibility.WithBypassRoles(pc.BypassRoles))
	}
	opts = append(opts, visibility.WithPostVisibilityCodes(visibility.PostVisibilityCodes{
		Public:    pc.PostVisibility.Public,
		Community: pc.PostVisibility.Community,
		GroupOnly: pc.PostVisibility.GroupOnly,
		Excluded:  pc.PostVisibility.Excluded,
	}))
	return visibility.NewPolicy(opts...)
}

// buildActor applies the configured default permission sets when the
// caller gives none.
func buildActor(pc config.PolicyConfig, id int64, perms, roles []string) visibility.Actor {
	if perms == nil {
		if id == visibility.AnonymousID {
			perms = pc.AnonymousPermissions
		} else {
			perms = pc.AuthenticatedPermissions
		}
	}

	var actor visibility.Actor
	if id == visibility.AnonymousID {
		actor = visibility.Anonymous(perms...)
	} else {
		actor = visibility.NewActor(id, perms...)
	}
	if len(roles) > 0 {
		actor = actor.WithRoles(roles...)
	}
	return actor
}

func commandTimeout(pc config.PolicyConfig) time.Duration {
	if pc.ResolveTimeout > 0 {
		return 3 * pc.ResolveTimeout
	}
	return 3 * visibility.DefaultResolveTimeout
}
