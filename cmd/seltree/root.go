package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/seltree/internal/cli"
	"github.com/aretw0/seltree/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "seltree",
	Short: "seltree evaluates hierarchical selection trees",
	Long: `seltree loads selection tree definitions (XML or YAML) from a folder and
lets you validate, inspect, graph, simulate and serve them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the definitions")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: <dir>/"+config.FileName+")")
	rootCmd.PersistentFlags().Int("max-depth", 0, "Maximum block reference nesting")
	rootCmd.PersistentFlags().String("store", "", "Snapshot store backend: memory, file, redis or sqlite")
	rootCmd.PersistentFlags().String("store-path", "", "Folder (file) or database (sqlite) of the snapshot store")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the redis store")
}

// resolveOptions loads the config file and applies every flag the user set
// on top of it. A positional argument overrides --dir when --dir is unset.
func resolveOptions(cmd *cobra.Command, dirArg string) (cli.Options, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	if !flags.Changed("dir") && dirArg != "" {
		dir = dirArg
	}
	explicit, _ := flags.GetString("config")

	cfg, err := config.Resolve(explicit, dir)
	if err != nil {
		return cli.Options{}, err
	}
	if flags.Changed("dir") || dirArg != "" {
		cfg.Dir = dir
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("store") {
		cfg.Store.Backend, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		cfg.Store.Path, _ = flags.GetString("store-path")
	}
	if flags.Changed("redis-addr") {
		cfg.Store.Redis.Addr, _ = flags.GetString("redis-addr")
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.HTTP.Addr, _ = flags.GetString("addr")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Options{}, err
	}

	debug, _ := flags.GetBool("debug")
	return cli.Options{Config: cfg, Debug: debug, Out: cmd.OutOrStdout()}, nil
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
