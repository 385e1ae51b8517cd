package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/cli"
)

func newBackendsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered catalog backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cli.NewOutputFromViper(v)
			table := out.Table("backends", "Name", "Defaults")

			for _, name := range physical.ListBackends() {
				defaults := physical.GetDefaults(name)
				table.Row(name, formatDefaults(defaults))
			}
			return table.Render()
		},
	}
}

func formatDefaults(defaults map[string]string) string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+defaults[k])
	}
	return strings.Join(parts, " ")
}
