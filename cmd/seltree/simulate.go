package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <script.yaml>",
	Short: "Run a scripted series of ticks",
	Long: `Runs a YAML script of signals, variable writes and ticks against one agent
and prints the selected behavior of every tick. Expectations in the script
make the command fail when a different behavior is selected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, "")
		if err != nil {
			return err
		}
		script, err := cli.LoadScript(args[0])
		if err != nil {
			return err
		}
		if agentID, _ := cmd.Flags().GetString("agent"); agentID != "" {
			script.Agent = agentID
		}
		_, err = cli.Simulate(cmd.Context(), opts, script)
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("agent", "", "Persist the run as this agent in the configured store")
}
