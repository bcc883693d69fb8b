package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/seltree"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of seltree",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "seltree version %s\n", seltree.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
