package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the HTTP agent API",
	Long:  `Serves templates and agents over a JSON HTTP API, with Prometheus metrics on /metrics.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, firstArg(args))
		if err != nil {
			return err
		}
		watch, _ := cmd.Flags().GetBool("watch")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		return cli.Serve(sigCtx, opts, watch)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default :8080)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload definitions when they change")
}
