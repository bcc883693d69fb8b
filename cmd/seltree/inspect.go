package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Describe the loaded templates",
	Long:  `Prints the templates grouped by type tag with their variables, signals and leaf translations.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, firstArg(args))
		if err != nil {
			return err
		}
		typeTag, _ := cmd.Flags().GetString("type")
		return cli.Inspect(opts, typeTag)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("type", "t", "", "Only templates with this type tag")
}
