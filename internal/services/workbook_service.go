package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/exporter"
	"github.com/dlcks7456/diaryCleaning/internal/files"
	"github.com/dlcks7456/diaryCleaning/internal/ingest"
	"github.com/dlcks7456/diaryCleaning/internal/pipeline"
	"github.com/dlcks7456/diaryCleaning/internal/rules"
	ws "github.com/dlcks7456/diaryCleaning/internal/websocket"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/events"
)

// Hub receives push notifications for connected clients.
type Hub interface {
	Broadcast(messageType string, data interface{})
}

// ProgressObserver forwards pipeline progress to hub.
func ProgressObserver(hub Hub) pipeline.Observer {
	return func(p pipeline.Progress) {
		if hub != nil {
			hub.Broadcast(ws.TypeProgress, p)
		}
	}
}

// Export kinds
const (
	ExportDerived = "derived"
	ExportImport  = "import"
)

// Export formats. CSV is only offered for derived exports.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// LoadRequest names the file to open.
type LoadRequest struct {
	Path  string `json:"path" validate:"required,spreadsheet"`
	Sheet string `json:"sheet,omitempty"`
}

// ExportRequest selects the workbook to write. Columns only applies to
// import exports and defaults to the configured import columns.
type ExportRequest struct {
	Kind    string   `json:"kind" validate:"required,oneof=derived import"`
	Format  string   `json:"format,omitempty" validate:"omitempty,oneof=xlsx csv"`
	Columns []string `json:"columns,omitempty"`
}

// ExportResult is the written file.
type ExportResult struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// RowView is one response as shown in the error review grid.
type RowView struct {
	ID            int                  `json:"unique_id"`
	Label         string               `json:"answer_combine,omitempty"`
	Fields        map[string]string    `json:"fields"`
	TotalDuration *int                 `json:"total_duration,omitempty"`
	Flags         map[domain.Rule]bool `json:"flags"`
}

// RuleErrors lists the panels a rule flagged.
type RuleErrors struct {
	Rule    domain.Rule  `json:"rule"`
	Title   string       `json:"title"`
	Skipped bool         `json:"skipped"`
	Reason  string       `json:"reason,omitempty"`
	Panels  []PanelFlags `json:"panels"`
}

// WorkbookService loads, reviews, edits and exports the session workbook.
type WorkbookService struct {
	cfg     *config.Config
	paths   *config.Paths
	session *workbook.Session
	writer  *exporter.WorkbookWriter
	csv     *exporter.CSVWriter
	hub     Hub
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorkbookService creates the service. hub may be nil.
func NewWorkbookService(cfg *config.Config, paths *config.Paths, session *workbook.Session, hub Hub, logger *slog.Logger) *WorkbookService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "workbook"))
	logger.Info("WorkbookService initialized",
		slog.String("convert_dir", paths.ConvertDir),
		slog.String("import_dir", paths.ImportDir))

	return &WorkbookService{
		cfg:     cfg,
		paths:   paths,
		session: session,
		writer:  exporter.NewWorkbookWriter(cfg.Columns.PanelNo, logger),
		csv:     exporter.NewCSVWriter("", logger),
		hub:     hub,
		logger:  logger,
		now:     time.Now,
	}
}

// Load reads, sorts and derives the file at req.Path.
func (s *WorkbookService) Load(ctx context.Context, req LoadRequest) (*Summary, error) {
	if _, err := os.Stat(req.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, req.Path)
		}
		return nil, fmt.Errorf("failed to access file: %w", err)
	}

	raw, err := ingest.ReadFile(req.Path, ingest.Options{
		Sheet:       req.Sheet,
		SheetIndex:  s.cfg.Validation.DefaultSheetIndex,
		DateColumns: []string{s.cfg.Columns.AnswerDate},
	})
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFile) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
		}
		return nil, err
	}

	st, err := s.session.Load(ctx, req.Path, ingest.Sort(raw, s.cfg.Columns))
	if err != nil {
		s.logger.ErrorContext(ctx, "workbook load failed",
			slog.String("path", req.Path),
			slog.String("error", err.Error()))
		s.notifyError("load", err)
		return nil, err
	}
	return s.publish(st), nil
}

// Summary returns the dashboard figures of the current workbook.
func (s *WorkbookService) Summary(ctx context.Context) (*Summary, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}
	return BuildSummary(s.cfg, st), nil
}

// ErrorPanels lists the panels with at least one row flagged by rule.
func (s *WorkbookService) ErrorPanels(ctx context.Context, rule string) (*RuleErrors, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}
	r, err := domain.ParseRule(rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}

	out := &RuleErrors{Rule: r, Title: r.Title(), Panels: []PanelFlags{}}
	if o, ok := st.Derived.Outcome(r); ok && o.Skipped() {
		out.Skipped, out.Reason = true, o.Reason
		return out, nil
	}
	if p := flaggedPanels(s.cfg, st.Derived, r); p != nil {
		out.Panels = p
	}
	return out, nil
}

// PanelRows returns the rows of panel, optionally limited to one product.
func (s *WorkbookService) PanelRows(ctx context.Context, panel, product string) ([]RowView, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}

	panel, product = strings.TrimSpace(panel), strings.TrimSpace(product)
	t := st.Derived
	for _, p := range rules.GroupByPanel(t.Rows, s.cfg.Columns.PanelNo) {
		if p.Key != panel {
			continue
		}
		views := make([]RowView, 0, len(p.Rows))
		for _, pos := range p.Rows {
			row := t.Rows[pos]
			if product != "" && strings.TrimSpace(row.Cells[s.cfg.Columns.ProductCol]) != product {
				continue
			}
			views = append(views, s.view(row))
		}
		return views, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPanelNotFound, panel)
}

func (s *WorkbookService) view(row domain.DerivedRow) RowView {
	v := RowView{
		ID:     row.ID,
		Label:  row.Label,
		Fields: make(map[string]string, len(config.EditableRoles)),
		Flags:  make(map[domain.Rule]bool, len(row.Flags)),
	}
	for _, role := range config.EditableRoles {
		col, _ := s.cfg.EditableColumn(role)
		if val, ok := row.Cells[col]; ok {
			v.Fields[string(role)] = val
		}
	}
	if row.HasStart && row.HasEnd {
		d := row.Duration
		v.TotalDuration = &d
	}
	for r, f := range row.Flags {
		v.Flags[r] = f
	}
	return v
}

// Modify applies field edits under errorType and re-derives.
func (s *WorkbookService) Modify(ctx context.Context, errorType string, edits []workbook.Edit) (*Summary, error) {
	st, err := s.session.Modify(ctx, errorType, edits)
	return s.afterEdit(ctx, "modify", st, err)
}

// Delete removes rows under errorType and re-derives.
func (s *WorkbookService) Delete(ctx context.Context, errorType string, ids []int) (*Summary, error) {
	st, err := s.session.Delete(ctx, errorType, ids)
	return s.afterEdit(ctx, "delete", st, err)
}

func (s *WorkbookService) afterEdit(ctx context.Context, op string, st *workbook.State, err error) (*Summary, error) {
	if errors.Is(err, workbook.ErrNotLoaded) {
		return nil, ErrNoWorkbook
	}
	if st == nil {
		s.logger.WarnContext(ctx, "edit rejected",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		s.notifyError(op, err)
		return nil, err
	}
	// A change log persistence failure still leaves a new state.
	return s.publish(st), err
}

// Export writes the current workbook to the configured output directory.
func (s *WorkbookService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := &ExportResult{Kind: req.Kind, Rows: len(st.Derived.Rows)}
	switch req.Kind {
	case ExportDerived:
		res.Path = s.paths.ConvertedFile(now)
		if req.Format == FormatCSV {
			res.Path = strings.TrimSuffix(res.Path, filepath.Ext(res.Path)) + ".csv"
			err = s.csv.WriteDerivedCSV(res.Path, st.Derived)
		} else {
			err = s.writer.WriteDerived(res.Path, st.Derived)
		}
	case ExportImport:
		if req.Format == FormatCSV {
			return nil, fmt.Errorf("%w: import exports are xlsx only", ErrInvalidExport)
		}
		cols := req.Columns
		if len(cols) == 0 {
			cols = s.cfg.ImportColumns()
		}
		res.Path = s.paths.ImportFile(now)
		err = s.writer.WriteImport(res.Path, st.Derived, cols)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidExport, req.Kind)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "workbook exported",
		slog.String("kind", req.Kind),
		slog.String("path", res.Path),
		slog.Int("rows", res.Rows))
	return res, nil
}

// Outputs lists the files written to the output directories, newest first.
func (s *WorkbookService) Outputs(ctx context.Context) ([]files.FileInfo, error) {
	out, err := files.NewDiscovery(s.paths).Outputs()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []files.FileInfo{}
	}
	return out, nil
}

// ChangeLog returns the entries logged this session.
func (s *WorkbookService) ChangeLog(ctx context.Context) []changelog.Entry {
	entries := s.session.ChangeLog().Entries()
	if entries == nil {
		return []changelog.Entry{}
	}
	return entries
}

func (s *WorkbookService) state() (*workbook.State, error) {
	st := s.session.Snapshot()
	if st == nil {
		return nil, ErrNoWorkbook
	}
	return st, nil
}

func (s *WorkbookService) notifyError(op string, err error) {
	if s.hub != nil {
		s.hub.Broadcast(ws.TypeError, events.ErrorMessage{Operation: op, Message: err.Error()})
	}
}

func (s *WorkbookService) publish(st *workbook.State) *Summary {
	summary := BuildSummary(s.cfg, st)
	if s.hub != nil {
		s.hub.Broadcast(ws.TypeWorkbook, summary)
	}
	return summary
}
