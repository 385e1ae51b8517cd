package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okanca/streamgate/internal/cli"
	"github.com/okanca/streamgate/internal/config"
	"github.com/okanca/streamgate/internal/visibility"
)

// fixtureFile is the JSON layout accepted by the load command: catalog
// items, group memberships, and per-actor grant refs in one document.
type fixtureFile struct {
	Items  []fixtureItem  `json:"items"`
	Groups []fixtureGroup `json:"groups"`
	Grants []fixtureGrant `json:"grants"`
}

type fixtureItem struct {
	TargetType     string   `json:"target_type"`
	TargetID       int64    `json:"target_id"`
	RecipientUser  *int64   `json:"recipient_user,omitempty"`
	RecipientGroup *int64   `json:"recipient_group,omitempty"`
	Group          *int64   `json:"group,omitempty"`
	Visibility     string   `json:"visibility,omitempty"`
	PostVisibility *int64   `json:"post_visibility,omitempty"`
	Grants         []string `json:"grants,omitempty"`
}

type fixtureGroup struct {
	ID      int64   `json:"id"`
	Open    bool    `json:"open"`
	Members []int64 `json:"members"`
}

type fixtureGrant struct {
	Actor int64    `json:"actor"`
	Refs  []string `json:"refs"`
}

func newLoadCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <fixture.json>",
		Short: "Load items, groups, and grants from a fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("read fixture: %w", err)
			}

			var fixture fixtureFile
			if err := json.Unmarshal(data, &fixture); err != nil {
				return fmt.Errorf("parse fixture: %w", err)
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

			items := make([]visibility.Item, 0, len(fixture.Items))
			for _, fi := range fixture.Items {
				item := visibility.Item{
					Target:         visibility.TargetType(fi.TargetType),
					TargetID:       fi.TargetID,
					RecipientUser:  fi.RecipientUser,
					RecipientGroup: fi.RecipientGroup,
					Group:          fi.Group,
					Visibility:     visibility.Level(fi.Visibility),
					PostVisibility: fi.PostVisibility,
				}
				for _, g := range fi.Grants {
					ref, err := visibility.ParseGrantRef(g)
					if err != nil {
						return fmt.Errorf("item %s/%d: %w", fi.TargetType, fi.TargetID, err)
					}
					item.Grants = append(item.Grants, ref)
				}
				items = append(items, item)
			}

			if len(items) > 0 {
				if err := st.catalog.PutBatch(tctx, items); err != nil {
					return fmt.Errorf("load items: %w", err)
				}
			}

			memberships := 0
			for _, g := range fixture.Groups {
				for _, member := range g.Members {
					if err := st.dir.AddMember(tctx, g.ID, member); err != nil {
						return fmt.Errorf("add member %d to group %d: %w", member, g.ID, err)
					}
					memberships++
				}
				if g.Open {
					if err := st.dir.SetOpen(tctx, g.ID, true); err != nil {
						return fmt.Errorf("mark group %d open: %w", g.ID, err)
					}
				}
			}

			grantCount := 0
			for _, fg := range fixture.Grants {
				for _, r := range fg.Refs {
					ref, err := visibility.ParseGrantRef(r)
					if err != nil {
						return fmt.Errorf("grant for actor %d: %w", fg.Actor, err)
					}
					if err := st.grants.Grant(tctx, fg.Actor, ref); err != nil {
						return fmt.Errorf("grant %s to actor %d: %w", r, fg.Actor, err)
					}
					grantCount++
				}
			}

			out := cli.NewOutputFromViper(v)
			return out.Result("load", "fixtures loaded").
				Detail("items", len(items)).
				Detail("groups", len(fixture.Groups)).
				Detail("memberships", memberships).
				Detail("grants", grantCount).
				Render()
		},
	}

	config.BindCommonFlags(cmd, v)
	return cmd
}
