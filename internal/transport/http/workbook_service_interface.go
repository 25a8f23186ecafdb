package http

import (
	"context"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	"github.com/dlcks7456/diaryCleaning/internal/files"
	"github.com/dlcks7456/diaryCleaning/internal/services"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
)

// WorkbookServiceInterface is the part of services.WorkbookService the
// handlers need.
type WorkbookServiceInterface interface {
	Load(ctx context.Context, req services.LoadRequest) (*services.Summary, error)
	Summary(ctx context.Context) (*services.Summary, error)
	ErrorPanels(ctx context.Context, rule string) (*services.RuleErrors, error)
	PanelRows(ctx context.Context, panel, product string) ([]services.RowView, error)
	Modify(ctx context.Context, errorType string, edits []workbook.Edit) (*services.Summary, error)
	Delete(ctx context.Context, errorType string, ids []int) (*services.Summary, error)
	Export(ctx context.Context, req services.ExportRequest) (*services.ExportResult, error)
	ChangeLog(ctx context.Context) []changelog.Entry
	Outputs(ctx context.Context) ([]files.FileInfo, error)
}

var _ WorkbookServiceInterface = (*services.WorkbookService)(nil)
