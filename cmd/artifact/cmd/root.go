package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the artifact controller.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Artifact - interactive installation controller",
		Long: `Artifact runs the interactive-installation controller: the event bus,
the session state machine, the animation compositor and the experience
modes, plus the optional diagnostics server and schedule calendar.`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewModesCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "artifact v%s (commit: %s, built on: %s)\n", Version, Commit, Date)
		},
	}
}
