package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dlcks7456/diaryCleaning/internal/app"
	"github.com/dlcks7456/diaryCleaning/internal/services"
)

// inputOptions select the raw file every batch command starts from.
type inputOptions struct {
	in     string
	sheet  string
	outDir string
}

func (o *inputOptions) bind(cmd *cobra.Command, withOut bool) {
	cmd.Flags().StringVarP(&o.in, "in", "i", "", "raw diary export (.xlsx or .csv)")
	cmd.Flags().StringVar(&o.sheet, "sheet", "", "sheet name for .xlsx input (default: configured sheet index)")
	if withOut {
		cmd.Flags().StringVarP(&o.outDir, "out", "o", "", "base directory for output folders (default: working directory)")
	}
	_ = cmd.MarkFlagRequired("in")
}

// loadWorkbook opens the application and loads the input file. The caller
// must Stop the returned application.
func (o *inputOptions) loadWorkbook(ctx context.Context, cmd *cobra.Command, global *globalOptions) (*app.Application, *services.Summary, error) {
	a, err := global.openApp(ctx, cmd, o.outDir)
	if err != nil {
		return nil, nil, err
	}
	summary, err := a.Workbook.Load(ctx, services.LoadRequest{Path: o.in, Sheet: o.sheet})
	if err != nil {
		_ = a.Stop(context.Background())
		return nil, nil, fmt.Errorf("load %s: %w", o.in, err)
	}
	return a, summary, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type exportOutput struct {
	Summary *services.Summary      `json:"summary,omitempty"`
	Export  *services.ExportResult `json:"export"`
}

func runExport(cmd *cobra.Command, global *globalOptions, opts *inputOptions, req services.ExportRequest, withSummary bool) (err error) {
	ctx := cmd.Context()
	a, summary, err := opts.loadWorkbook(ctx, cmd, global)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(context.Background()); err == nil {
			err = stopErr
		}
	}()

	res, err := a.Workbook.Export(ctx, req)
	if err != nil {
		return fmt.Errorf("export %s: %w", req.Kind, err)
	}

	out := exportOutput{Export: res}
	if withSummary {
		out.Summary = summary
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func newConvertCommand(global *globalOptions) *cobra.Command {
	opts := &inputOptions{}
	var format string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Derive and annotate a raw export into a review workbook",
		Long: `Convert sorts the raw export, assigns unique ids, derives the split
fields and rule flags and writes convert_data/converted_data_<timestamp>.xlsx
(or .csv with --format csv).
The summary of flagged rows is printed as JSON.`,
		Example: "  diarycheck convert --in raw.xlsx --out ./work",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != services.FormatXLSX && format != services.FormatCSV {
				return fmt.Errorf("%w: unknown format %q", services.ErrInvalidExport, format)
			}
			req := services.ExportRequest{Kind: services.ExportDerived, Format: format}
			return runExport(cmd, global, opts, req, true)
		},
	}
	opts.bind(cmd, true)
	cmd.Flags().StringVar(&format, "format", services.FormatXLSX, "output format (xlsx or csv)")
	return cmd
}

func newExportCommand(global *globalOptions) *cobra.Command {
	opts := &inputOptions{}
	var columns []string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cleaned table in import layout",
		Long: `Export writes import_data/import_data_<date>.xlsx with the configured
import columns, or the columns given with --columns.`,
		Example: "  diarycheck export --in raw.csv --columns unique_id,PANELNO,Q1",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.ExportRequest{Kind: services.ExportImport, Columns: columns}
			return runExport(cmd, global, opts, req, false)
		},
	}
	opts.bind(cmd, true)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to export, in order")
	return cmd
}

func newSummaryCommand(global *globalOptions) *cobra.Command {
	opts := &inputOptions{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print rule counts for a raw export without writing files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			scratch, err := os.MkdirTemp("", "diarycheck-summary-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(scratch)
			opts.outDir = scratch

			a, summary, err := opts.loadWorkbook(cmd.Context(), cmd, global)
			if err != nil {
				return err
			}
			defer func() {
				if stopErr := a.Stop(context.Background()); err == nil {
					err = stopErr
				}
			}()
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	opts.bind(cmd, false)
	return cmd
}
