package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [template]",
	Short: "Export a template as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of a template. With --agent the stored agent's selection and active states are highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, "")
		if err != nil {
			return err
		}
		agentID, _ := cmd.Flags().GetString("agent")
		return cli.Graph(cmd.Context(), opts, firstArg(args), agentID)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("agent", "", "Highlight the state of a stored agent")
}
