// Package commands implements the diarycheck command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dlcks7456/diaryCleaning/internal/app"
	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   app.AppName,
		Short: "diarycheck - survey diary cleaning engine",
		Long: `diarycheck loads a raw survey diary export, derives the split date,
clock and duration fields, flags the seven consistency rules per panel
and writes the annotated workbook for review.

Run "diarycheck serve" for the review API or use convert, summary and
export for one-shot batch runs.`,
		Version:       contracts.GetFullVersionString(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default: ./config.yaml or configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(opts),
		newConvertCommand(opts),
		newSummaryCommand(opts),
		newExportCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the configuration and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// batchLogger logs to stderr so stdout stays machine readable. File output
// goes through the process-wide logger.
func batchLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	if strings.EqualFold(cfg.Logging.Output, "console") {
		return infrastructure.NewLogger(cfg.Logging, stderr), nil
	}
	return infrastructure.InitializeLogger(cfg.Logging)
}

// openApp builds the application for a batch command. Output directories
// resolve against outDir, or the working directory when it is empty.
func (o *globalOptions) openApp(ctx context.Context, cmd *cobra.Command, outDir string) (*app.Application, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	// batch runs never serve /metrics
	cfg.Telemetry.MetricsEnabled = false

	logger, err := batchLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if outDir == "" {
		if outDir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, outDir, logger)
}
