package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Reload definitions on every change",
	Long:  `Watches the definitions folder and reloads it on every change. A reload with errors is rejected and the previous templates stay active.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, firstArg(args))
		if err != nil {
			return err
		}
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		return cli.Watch(sigCtx, opts)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
