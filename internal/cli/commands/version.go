package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/bornc/internal/serialization"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display bornc version and context binary format information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bornc v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "context binary format v%d\n", serialization.FormatVersion)
		},
	}
}
