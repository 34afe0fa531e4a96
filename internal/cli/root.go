// Package cli implements the deeptrust-agent command tree.
package cli

import (
	"github.com/spf13/cobra"

	"deeptrust/internal/platform/config"
	"deeptrust/internal/platform/logging"
)

var version = "dev"

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultAgentConfigPath}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "deeptrust-agent",
		Short:         "Detect media on web pages and check them against the DeepTRUST Analysis Service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("deeptrust-agent version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultAgentConfigPath, "Path to deeptrust.yml (optional)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
		logging.Setup(logging.LoadConfig())
	}

	rootCmd.AddCommand(
		newWatchCmd(loader),
		newScanCmd(loader),
		newAnalyzeCmd(loader),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
}
