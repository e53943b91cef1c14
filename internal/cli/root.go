// Package cli provides the command-line interface for bornc.
package cli

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/born-ml/bornc/internal/cli/commands"
	"github.com/born-ml/bornc/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)

	rootCmd := &cobra.Command{
		Use:   "bornc",
		Short: "bornc - ahead-of-time compiler for exported tensor programs",
		Long: `bornc lowers exported tensor programs onto an accelerator backend.

Each graph node is handed to the visitor registered for its operator.
Compile-time computable nodes such as arange are folded into static tensors,
and the result is written as a context binary (.bctx).`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			loader := config.NewLoader()
			cfg, err := loader.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			if cfg.Verbose && !cmd.Root().PersistentFlags().Changed("v") {
				_ = klogFlags.Set("v", "1")
			}
			if f := loader.FileUsed(); f != "" {
				klog.V(1).Infof("using config file %s", f)
			}

			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./bornc.yaml)")
	rootCmd.PersistentFlags().Bool("strict", false, "Fail on operators without a visitor instead of skipping them")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "Directory for compiled context binaries")
	rootCmd.PersistentFlags().IntP("workers", "j", 0, "Number of graphs compiled in parallel")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("checksum", true, "Record a SHA-256 checksum of static data")
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewCompileCommand(Version))
	rootCmd.AddCommand(commands.NewOpsCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
