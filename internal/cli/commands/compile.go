package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/born-ml/bornc/internal/config"
	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/lower"
	"github.com/born-ml/bornc/internal/onnx"
	"github.com/born-ml/bornc/internal/serialization"
)

// CompileResult describes one compiled graph.
type CompileResult struct {
	Source      string
	Output      string
	Graph       string
	Tensors     int
	Ops         int
	StaticBytes int64
	FileBytes   int64
	Skipped     []string
	Elapsed     time.Duration
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <graph.yaml|model.onnx>...",
		Short: "Lower graphs and write context binaries",
		Long: `Lower one or more exported graphs and write each as <name>.bctx
into the output directory. Graphs are compiled in parallel.

Files ending in .onnx are imported as ONNX models; anything else is read
as a YAML graph.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			results, err := CompileAll(cmd.Context(), args, cfg, version)
			if err != nil {
				return err
			}
			renderCompileResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	return cmd
}

// CompileAll compiles every path with at most cfg.Workers graphs in flight.
// Results are returned in the order of paths. The first failure cancels the rest.
func CompileAll(ctx context.Context, paths []string, cfg *config.Config, version string) ([]CompileResult, error) {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		out := outputPath(cfg.OutputDir, path)
		if prev, dup := seen[out]; dup {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, path, out)
		}
		seen[out] = path
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]CompileResult, len(paths))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	for i, path := range paths {
		eg.Go(func() error {
			res, err := compileOne(egctx, path, cfg, version)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compileOne(ctx context.Context, path string, cfg *config.Config, version string) (CompileResult, error) {
	start := time.Now()
	g, err := loadGraph(path)
	if err != nil {
		return CompileResult{}, err
	}

	prog, err := lower.Lower(ctx, g, lower.Options{Strict: cfg.Strict})
	if err != nil {
		return CompileResult{}, err
	}

	out := outputPath(cfg.OutputDir, path)
	n, err := serialization.WriteFile(out, prog, serialization.WriterOptions{
		CompilerVersion: version,
		Metadata:        map[string]string{"source": filepath.Base(path)},
		SkipChecksum:    !cfg.Checksum,
	})
	if err != nil {
		return CompileResult{}, err
	}

	res := CompileResult{
		Source:      path,
		Output:      out,
		Graph:       prog.Graph,
		Tensors:     len(prog.Tensors),
		Ops:         len(prog.Ops),
		StaticBytes: prog.StaticBytes(),
		FileBytes:   n,
		Skipped:     prog.Skipped,
		Elapsed:     time.Since(start),
	}
	klog.V(1).Infof("compiled %s -> %s (%s) in %s", path, out, humanize.Bytes(uint64(n)), res.Elapsed) //nolint:gosec // G115: n >= 0.
	return res, nil
}

// loadGraph picks the frontend by file extension.
func loadGraph(path string) (*graph.Graph, error) {
	if strings.EqualFold(filepath.Ext(path), ".onnx") {
		return onnx.LoadFile(path)
	}
	return graph.LoadFile(path)
}

// outputPath maps graphs/model.yaml to <dir>/model.bctx.
func outputPath(dir, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(dir, base+".bctx")
}

func renderCompileResults(w io.Writer, results []CompileResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Graph", "Output", "Tensors", "Ops", "Static", "File", "Skipped"})
	for _, r := range results {
		skipped := "-"
		if len(r.Skipped) > 0 {
			skipped = strings.Join(r.Skipped, ", ")
		}
		t.AppendRow(table.Row{
			r.Graph,
			r.Output,
			r.Tensors,
			r.Ops,
			humanize.Bytes(uint64(r.StaticBytes)), //nolint:gosec // G115: sizes are non-negative.
			humanize.Bytes(uint64(r.FileBytes)),   //nolint:gosec // G115: sizes are non-negative.
			skipped,
		})
	}
	t.Render()
}
