package main

import (
	"github.com/spf13/cobra"
)

// defaultConfigPath is the config file name looked for in the working
// directory when --config is not given.
const defaultConfigPath = "astra.yaml"

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Astra runtime",
		Long: `Start the Astra runtime with all configured channel adapters, the
event pipeline, and the LLM provider pool.

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  astra serve
  astra serve --config /etc/astra/production.yaml
  astra serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
