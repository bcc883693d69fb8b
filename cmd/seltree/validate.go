package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check every definition and report all problems",
	Long:  `Loads every definition file and reports every load error in one pass: unknown variables, malformed conditions, missing blocks, duplicates.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, firstArg(args))
		if err != nil {
			return err
		}
		return cli.Validate(opts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
