package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okanca/streamgate/internal/cli"
	"github.com/okanca/streamgate/internal/config"
	"github.com/okanca/streamgate/internal/visibility"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	var (
		actorID int64
		perms   []string
		roles   []string
		scope   string
	)

	cmd := &cobra.Command{
		Use:   "check <target-type> <target-id>",
		Short: "Check whether an actor may see one catalog item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := visibility.TargetType(args[0])
			var id int64
			if _, err := fmt.Sscanf(args[1], "%d", &id); err != nil {
				return fmt.Errorf("invalid target id %q", args[1])
			}

			sc, ok := visibility.ParseScope(scope)
			if !ok {
				return fmt.Errorf("unknown scope %q", scope)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := openStack(ctx, cmd, v)
			if err != nil {
				return err
			}
			defer st.Close()

			tctx, tcancel := context.WithTimeout(ctx, commandTimeout(st.cfg.Policy))
			defer tcancel()

			item, err := st.catalog.Get(tctx, target, id)
			if err != nil {
				return fmt.Errorf("get item: %w", err)
			}

			var actorPerms []string
			if cmd.Flags().Changed("perm") {
				actorPerms = perms
			}
			actor := buildActor(st.cfg.Policy, actorID, actorPerms, roles)

			visible, err := st.resolver().IsVisible(tctx, actor, item, sc)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}

			out := cli.NewOutputFromViper(v)
			return out.KV("decision").
				Set("Visible", visible).
				Set("Actor", actor.ID).
				Set("Scope", string(sc)).
				Set("Target Type", string(target)).
				Set("Target ID", id).
				Render()
		},
	}

	cmd.Flags().Int64Var(&actorID, "actor", visibility.AnonymousID, "actor id (0 for anonymous)")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "actor permission (repeatable, overrides defaults)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "actor role (repeatable)")
	cmd.Flags().StringVar(&scope, "scope", string(visibility.ScopeStream), "feed scope (stream, notification, homepage, explore)")
	config.BindCommonFlags(cmd, v)
	return cmd
}
