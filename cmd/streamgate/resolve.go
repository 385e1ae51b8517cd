package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okanca/streamgate/internal/cli"
	"github.com/okanca/streamgate/internal/config"
	"github.com/okanca/streamgate/internal/visibility"
)

func newResolveCmd(v *viper.Viper) *cobra.Command {
	var (
		actorID int64
		perms   []string
		roles   []string
		scope   string
		targets []string
		filter  string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the per-type visible id sets for an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var actorPerms []string
			if cmd.Flags().Changed("perm") {
				actorPerms = perms
			}
			actor := buildActor(st.cfg.Policy, actorID, actorPerms, roles)

			tts := make([]visibility.TargetType, 0, len(targets))
			for _, t := range targets {
				tts = append(tts, visibility.TargetType(t))
			}

			result, err := st.resolver().ResolveVisibleIDs(tctx, actor, sc, visibility.ResolveOptions{
				Targets:         tts,
				CandidateFilter: filter,
			})
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}

			out := cli.NewOutputFromViper(v)
			table := out.Table("visible-ids", "Target", "Status", "IDs")
			for _, target := range visibility.TargetTypes() {
				if ids, ok := result.IDs[target]; ok {
					table.Row(string(target), "visible", formatIDs(ids))
				}
			}
			for _, target := range result.Excluded {
				table.Row(string(target), "excluded", "")
			}
			for _, target := range result.Unresolved {
				table.Row(string(target), "unresolved", "")
			}
			return table.Render()
		},
	}

	cmd.Flags().Int64Var(&actorID, "actor", visibility.AnonymousID, "actor id (0 for anonymous)")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "actor permission (repeatable, overrides defaults)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "actor role (repeatable)")
	cmd.Flags().StringVar(&scope, "scope", string(visibility.ScopeStream), "feed scope (stream, notification, homepage, explore)")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "target type to resolve (repeatable, default all)")
	cmd.Flags().StringVar(&filter, "filter", "", "candidate filter expression")
	config.BindCommonFlags(cmd, v)
	return cmd
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
