package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/artifact/config"
	"github.com/GoCodeAlone/artifact/mode"
)

// NewModesCommand creates a command that lists the experiences a given
// configuration would register, with their capability requirements.
func NewModesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List the experience modes a configuration enables",
		Long: `Modes resolves the configured mode list against the built-in
experiences and prints each registered mode with the capabilities it
requires. Useful for checking a deployment config before installing it.

Examples:
  artifact modes
  artifact modes --config artifact.yaml`,
		RunE: runModes,
	}

	cmd.Flags().StringP("config", "c", "", "Path to a YAML or TOML configuration file")

	return cmd
}

func runModes(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry := mode.NewRegistry()
	if err := registerModes(registry, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	descriptors := registry.Descriptors()
	fmt.Fprintf(out, "Registered modes: %d\n\n", len(descriptors))
	for _, desc := range descriptors {
		requires := "none"
		if len(desc.Requires) > 0 {
			parts := make([]string, 0, len(desc.Requires))
			for _, c := range desc.Requires {
				parts = append(parts, string(c))
			}
			requires = strings.Join(parts, ", ")
		}
		fmt.Fprintf(out, "  %-12s %-24s requires: %s\n", desc.Name, desc.DisplayName, requires)
	}

	return nil
}
