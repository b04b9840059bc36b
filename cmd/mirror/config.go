package main

import (
	"fmt"
	"slices"

	"github.com/gogpu/wgpu/hal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/mirror/backend"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return enc.Close()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the registered rendering and capture backends",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rendering: %v\n", backend.Available())
		fmt.Fprintf(out, "capture:   %v\n", backend.AvailableCapture())

		var apis []string
		for _, b := range hal.AvailableBackends() {
			apis = append(apis, b.String())
		}
		slices.Sort(apis)
		fmt.Fprintf(out, "graphics:  %v\n", apis)
	},
}

func init() {
	addRunFlags(configShowCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
