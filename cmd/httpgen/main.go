package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"httpgen/internal/config"
	"httpgen/internal/logger"
	"httpgen/internal/pipeline"
	"httpgen/internal/ui"
)

const (
	appName    = "httpgen"
	appVersion = "1.0.0"
	appDesc    = "Compiles endpoint documents into JSON:API contracts and OpenAPI documents"
)

// shutdownSignals cancel a running generation
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	root := newRootCommand(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         appDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigFile, "Path to configuration file")
	cmd.PersistentFlags().StringSlice("plugin", nil, "Output plugins (jsonapi, swagger, catalog)")
	cmd.PersistentFlags().StringP("output-dir", "o", "", "Override the output directory")
	cmd.PersistentFlags().StringSliceP("input", "i", nil, "Input documents or directories")
	cmd.PersistentFlags().StringArray("set", nil, "Override a configuration key (key=value)")

	cmd.AddCommand(newGenerateCommand(stdout))
	cmd.AddCommand(newCleanCommand(stdout))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// loadConfig merges positional inputs into the --input flag before loading
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	for _, arg := range args {
		if err := cmd.Flags().Set("input", arg); err != nil {
			return nil, err
		}
	}
	configPath, _ := cmd.Flags().GetString("config")
	return config.Load(configPath, cmd.Flags())
}

func newGenerateCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [inputs...]",
		Short: "Compile the input documents and write the plugin outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if err := logger.InitWithFileLevel(stdout, cfg.Log.File, cfg.Log.Verbose, cfg.Log.FileLevel()); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Close()

			if err := cfg.Validate(); err != nil {
				return err
			}
			if logger.IsVerbose() {
				cfg.Print()
			}

			progress := ui.NewPipeline(ui.Phases)
			if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
				progress.Disable()
			}

			start := time.Now()
			result, err := pipeline.New(cfg, progress).Run(cmd.Context())
			if err != nil {
				logger.Error("Generation failed: %v", err)
				return err
			}

			for _, path := range result.Written {
				logger.Info("Wrote %s", path)
			}
			progress.PrintSummary("Generated %d files in %s (run %s)", len(result.Written), time.Since(start).Round(time.Millisecond), result.RunID)
			return nil
		},
	}
	cmd.Flags().String("temp-dir", "", "Reuse a workspace directory for the schema compiler")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (DEBUG level)")
	cmd.Flags().BoolP("quiet", "q", false, "Disable progress output")
	return cmd
}

func newCleanCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [inputs...]",
		Short: "Remove the files generate would write",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			removed, err := pipeline.Clean(cfg)
			for _, path := range removed {
				fmt.Fprintf(stdout, "removed %s\n", path)
			}
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the httpgen version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n%s\n", appName, appVersion, appDesc)
			return err
		},
	}
}
