package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/born-ml/bornc/internal/builders"
)

// NewOpsCommand creates the ops command.
func NewOpsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List supported operators",
		Long:  `List every operator target with a registered visitor.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := builders.NewRegistry()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Target", "Visitor"})
			for _, target := range registry.SupportedTargets() {
				v, _ := registry.Get(target)
				t.AppendRow(table.Row{target, visitorName(v)})
			}
			t.AppendFooter(table.Row{"Total", len(registry.SupportedTargets())})
			t.Render()
			return nil
		},
	}
}

// visitorName returns the bare type name, e.g. "Arange" for *builders.Arange.
func visitorName(v builders.NodeVisitor) string {
	name := fmt.Sprintf("%T", v)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
