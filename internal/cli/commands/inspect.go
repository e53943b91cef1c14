package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/born-ml/bornc/internal/serialization"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var (
		showValues bool
		noVerify   bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <program.bctx>",
		Short: "Describe a context binary",
		Long: `Print the header, tensors and ops of a context binary.
With --values, static tensor contents are printed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := serialization.OpenWithOptions(args[0], serialization.ReaderOptions{
				SkipChecksumValidation: noVerify,
				ValidationLevel:        serialization.ValidationStrict,
			})
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			return renderInspect(cmd.OutOrStdout(), r, showValues)
		},
	}

	cmd.Flags().BoolVar(&showValues, "values", false, "Print static tensor values")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip checksum verification")
	return cmd
}

// maxValues caps the elements printed per tensor with --values.
const maxValues = 32

func renderInspect(w io.Writer, r *serialization.Reader, showValues bool) error {
	h := r.Header()

	info := table.NewWriter()
	info.SetOutputMirror(w)
	info.SetStyle(table.StyleLight)
	info.AppendRows([]table.Row{
		{"Graph", h.Graph},
		{"Program", h.ProgramID},
		{"Compiler", h.CompilerVersion},
		{"Created", h.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Data", humanize.Bytes(uint64(r.DataSize()))}, //nolint:gosec // G115: non-negative.
		{"Checksum", checksumLabel(r)},
		{"Inputs", strings.Join(h.Inputs, ", ")},
		{"Outputs", strings.Join(h.Outputs, ", ")},
	})
	if len(h.Skipped) > 0 {
		info.AppendRow(table.Row{"Skipped", strings.Join(h.Skipped, ", ")})
	}
	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		info.AppendRow(table.Row{"meta:" + k, h.Metadata[k]})
	}
	info.Render()

	tensors := table.NewWriter()
	tensors.SetOutputMirror(w)
	tensors.SetStyle(table.StyleLight)
	tensors.SetTitle("Tensors")
	tensors.AppendHeader(table.Row{"Name", "Type", "DType", "Shape", "Size", "Source"})
	for _, t := range h.Tensors {
		size := "-"
		if t.Size > 0 {
			size = humanize.Bytes(uint64(t.Size)) //nolint:gosec // G115: validated non-negative.
		}
		tensors.AppendRow(table.Row{
			t.Name,
			strings.TrimPrefix(t.Type, "QNN_TENSOR_TYPE_"),
			strings.TrimPrefix(t.DType, "QNN_DATATYPE_"),
			fmt.Sprint(t.Shape),
			size,
			t.Source,
		})
	}
	tensors.Render()

	if len(h.Ops) > 0 {
		ops := table.NewWriter()
		ops.SetOutputMirror(w)
		ops.SetStyle(table.StyleLight)
		ops.SetTitle("Ops")
		ops.AppendHeader(table.Row{"Name", "Package", "Type", "Inputs", "Outputs"})
		for _, op := range h.Ops {
			ops.AppendRow(table.Row{op.Name, op.Package, op.Type, strings.Join(op.Inputs, ", "), strings.Join(op.Outputs, ", ")})
		}
		ops.Render()
	}

	if showValues {
		for _, t := range h.Tensors {
			if !t.IsStatic() {
				continue
			}
			raw, err := r.ReadStatic(t.Name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "%s %s = %s\n", t.Name, raw, raw.Summary(maxValues))
		}
	}
	return nil
}

func checksumLabel(r *serialization.Reader) string {
	if r.Flags()&serialization.FlagNoChecksum != 0 {
		return "none"
	}
	return r.Checksum().String()
}
