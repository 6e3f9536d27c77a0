// Command astra is the CLI entry point for the Astra chat-bot runtime.
//
// Astra wires platform channel adapters through an onion-model event
// pipeline into a tool-augmented LLM agent runtime.
//
// # Basic usage
//
//	astra serve --config astra.yaml
//	astra doctor --config astra.yaml
//	astra plugins list --config astra.yaml
//	astra tools list --config astra.yaml
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "astra",
		Short:         "Astra chat-bot runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(buildServeCmd())
	cmd.AddCommand(buildDoctorCmd())
	cmd.AddCommand(buildPluginsCmd())
	cmd.AddCommand(buildToolsCmd())

	return cmd
}
