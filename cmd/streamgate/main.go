package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "streamgate",
		Short: "Activity stream visibility resolver",
	}

	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default ~/.streamgate)")
	_ = v.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format (text, json)")
	_ = v.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(
		newServeCmd(v),
		newCheckCmd(v),
		newResolveCmd(v),
		newLoadCmd(v),
		newBackendsCmd(v),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
