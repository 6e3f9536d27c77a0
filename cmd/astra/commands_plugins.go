package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/astrarelay/astra/internal/config"
)

func buildPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect configured plugins",
	}
	cmd.AddCommand(buildPluginsListCmd())
	return cmd
}

func buildPluginsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins configured under plugins.entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			names := make([]string, 0, len(cfg.Plugins.Entries))
			for name := range cfg.Plugins.Entries {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				entry := cfg.Plugins.Entries[name]
				status := "disabled"
				if entry.Enabled {
					status = "enabled"
				}
				fmt.Printf("%-24s %-10s %s\n", name, status, entry.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}
