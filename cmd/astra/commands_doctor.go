package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/internal/plugins"
)

func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration without starting the runtime",
		Long:  "Loads and validates the config file, reporting every issue found in one pass.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func runDoctor(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if err := plugins.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("plugin config invalid: %w", err)
	}

	fmt.Println("config ok:", configPath)
	fmt.Println("  llm.default_provider:", cfg.LLM.DefaultProvider)
	fmt.Println("  llm.fallback_chain:", cfg.LLM.FallbackChain)
	fmt.Println("  channels.inbound_queue_size:", cfg.Channels.InboundQueueSize)
	fmt.Println("  pipeline.agent_id:", cfg.Pipeline.AgentID)
	fmt.Printf("  plugins.entries: %d configured\n", len(cfg.Plugins.Entries))
	return nil
}
