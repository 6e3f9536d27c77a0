package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/astrarelay/astra/internal/agent"
	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/internal/plugins"
	"github.com/astrarelay/astra/internal/sessions"
)

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect tools available to the agent runtime",
	}
	cmd.AddCommand(buildToolsListCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools registered by configured plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			runtime := agent.NewRuntime(nil, sessions.NewMemoryMessageStore())
			registry := plugins.NewRuntimeRegistry()
			for name, entry := range cfg.Plugins.Entries {
				if !entry.Enabled || entry.Path == "" {
					continue
				}
				plugin, err := plugins.LoadRuntimePlugin(entry.Path)
				if err != nil {
					return fmt.Errorf("plugin %q: %w", name, err)
				}
				if err := registry.Register(plugin); err != nil {
					return fmt.Errorf("plugin %q: %w", name, err)
				}
			}
			if err := registry.LoadTools(cfg, runtime); err != nil {
				return fmt.Errorf("failed to load tools: %w", err)
			}

			tools := runtime.Tools()
			names := make([]string, 0, len(tools))
			descriptions := make(map[string]string, len(tools))
			for _, tool := range tools {
				names = append(names, tool.Name())
				descriptions[tool.Name()] = tool.Description()
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%-24s %s\n", name, descriptions[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}
