// Package pipeline re-derives every computed column of a response table.
// A run strips previously derived columns, decomposes the packed fields,
// computes durations and labels, evaluates the rules and composes a new
// immutable derived table. Runs never modify their input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/dlcks7456/diaryCleaning/internal/annotate"
	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/fields"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/internal/rules"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Step names a pipeline stage.
type Step string

const (
	StepStrip      Step = "strip"
	StepSplitDate  Step = "split_date"
	StepParseOrder Step = "parse_order"
	StepSplitClock Step = "split_clock"
	StepDuration   Step = "duration"
	StepRules      Step = "rules"
	StepCompose    Step = "compose"
)

// Steps in execution order.
var Steps = []Step{StepStrip, StepSplitDate, StepParseOrder, StepSplitClock, StepDuration, StepRules, StepCompose}

// Progress is reported when a stage starts.
type Progress struct {
	RunID string `json:"run_id"`
	Step  Step   `json:"step"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// Observer receives progress events. It is called synchronously.
type Observer func(Progress)

// MissingColumnError reports a column without which no rule can run.
type MissingColumnError struct {
	Role   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required %s column %q is missing from the table", e.Role, e.Column)
}

// ErrEmptyTable is returned for a table without rows.
var ErrEmptyTable = errors.New("table has no rows")

// Pipeline runs the Raw to Derived transition.
type Pipeline struct {
	cfg      *config.Config
	engine   *rules.Engine
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *infrastructure.BusinessMetrics
	observer Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithMetrics records run metrics.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithObserver installs a progress observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New creates a pipeline for a validated configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		engine: rules.NewEngine(cfg, logger),
		logger: infrastructure.WithComponent(logger, "pipeline"),
		tracer: tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type run struct {
	id      string
	table   domain.ResponseTable
	rows    []domain.DerivedRow
	present map[string]bool
	errs    fields.FieldErrors
	out     *domain.DerivedTable
}

// Run derives a new table from raw. raw is not modified. Malformed fields
// fail the run with a fields.FieldErrors listing every offending cell.
func (p *Pipeline) Run(ctx context.Context, raw domain.ResponseTable) (*domain.DerivedTable, error) {
	r := &run{id: uuid.NewString()}
	started := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.Int("rows", len(raw.Rows)),
	))
	defer span.End()

	logger := p.logger.With("run_id", r.id)
	logger.InfoContext(ctx, "re-derivation started", slog.Int("rows", len(raw.Rows)))

	stages := map[Step]func(context.Context, *run, domain.ResponseTable) error{
		StepStrip:      p.strip,
		StepSplitDate:  p.splitDate,
		StepParseOrder: p.parseOrder,
		StepSplitClock: p.splitClock,
		StepDuration:   p.durations,
		StepRules:      p.evaluate,
		StepCompose:    p.compose,
	}

	var err error
	for i, step := range Steps {
		if err = ctx.Err(); err != nil {
			break
		}
		p.notify(Progress{RunID: r.id, Step: step, Index: i + 1, Total: len(Steps)})

		stageCtx, stageSpan := p.tracer.Start(ctx, "pipeline."+string(step))
		err = stages[step](stageCtx, r, raw)
		if err != nil {
			infrastructure.RecordError(stageCtx, err)
		}
		stageSpan.End()
		if err != nil {
			break
		}
	}

	infrastructure.RecordPipelineRun(ctx, p.metrics, r.id, len(raw.Rows), time.Since(started), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logger.ErrorContext(ctx, "re-derivation failed", slog.String("error", err.Error()))
		return nil, err
	}

	for _, o := range r.out.Outcomes {
		infrastructure.RecordRuleOutcome(ctx, p.metrics, string(o.Rule), len(o.Rows), o.Skipped())
	}
	logger.InfoContext(ctx, "re-derivation complete",
		slog.Int("rows", len(r.out.Rows)),
		slog.Int("columns", len(r.out.Columns)),
		slog.Duration("elapsed", time.Since(started)))

	return r.out, nil
}

func (p *Pipeline) notify(pr Progress) {
	if p.observer != nil {
		p.observer(pr)
	}
}

func (p *Pipeline) strip(_ context.Context, r *run, raw domain.ResponseTable) error {
	if len(raw.Rows) == 0 {
		return ErrEmptyTable
	}
	r.table = raw.Without(p.cfg.DerivedColumns()...)

	r.present = make(map[string]bool, len(r.table.Columns))
	for _, c := range r.table.Columns {
		r.present[c] = true
	}
	if !r.present[p.cfg.Columns.UniqueID] {
		return &MissingColumnError{Role: "unique_id", Column: p.cfg.Columns.UniqueID}
	}
	if !r.present[p.cfg.Columns.PanelNo] {
		return &MissingColumnError{Role: "panel_no", Column: p.cfg.Columns.PanelNo}
	}

	r.rows = make([]domain.DerivedRow, len(r.table.Rows))
	for i, row := range r.table.Rows {
		r.rows[i] = domain.DerivedRow{ResponseRow: row}
	}
	return nil
}

func (p *Pipeline) splitDate(_ context.Context, r *run, _ domain.ResponseTable) error {
	col := p.cfg.Columns.InputCol
	if !r.present[col] {
		return nil
	}
	for i := range r.rows {
		row := &r.rows[i]
		v := row.Cells[col]
		d, err := fields.ParseDate(v)
		if err != nil {
			r.errs.Add(row.ID, col, v, err)
			continue
		}
		row.Month, row.Day, row.HasDate = d.A, d.B, true
	}
	return nil
}

func (p *Pipeline) parseOrder(_ context.Context, r *run, _ domain.ResponseTable) error {
	col := p.cfg.Columns.OrderCol
	if !r.present[col] {
		return nil
	}
	for i := range r.rows {
		row := &r.rows[i]
		v := row.Cells[col]
		n, err := fields.ParseOrder(v)
		if err != nil {
			r.errs.Add(row.ID, col, v, err)
			continue
		}
		row.Order, row.HasOrder = n, true
	}
	return nil
}

func (p *Pipeline) splitClock(_ context.Context, r *run, _ domain.ResponseTable) error {
	start, end := p.cfg.Columns.StartCol, p.cfg.Columns.EndCol
	for i := range r.rows {
		row := &r.rows[i]
		if r.present[start] {
			v := row.Cells[start]
			if c, err := fields.ParseClock(v); err != nil {
				r.errs.Add(row.ID, start, v, err)
			} else {
				row.Start, row.HasStart = c, true
			}
		}
		if r.present[end] {
			v := row.Cells[end]
			if c, err := fields.ParseClock(v); err != nil {
				r.errs.Add(row.ID, end, v, err)
			} else {
				row.End, row.HasEnd = c, true
			}
		}
	}
	return r.errs.Err()
}

func (p *Pipeline) durations(_ context.Context, r *run, _ domain.ResponseTable) error {
	product := p.cfg.Columns.ProductCol
	hasProduct := r.present[product]
	for i := range r.rows {
		row := &r.rows[i]
		if row.HasStart && row.HasEnd {
			row.Duration = fields.DurationMinutes(row.Start, row.End)
		}
		if row.HasDate && row.HasOrder && row.HasStart && row.HasEnd && hasProduct {
			row.Label = annotate.Label(row.Month, row.Day, strings.TrimSpace(row.Cells[product]), row.Order, row.Start, row.End)
		}
	}
	return nil
}

func (p *Pipeline) evaluate(ctx context.Context, r *run, _ domain.ResponseTable) error {
	outcomes, err := p.engine.Evaluate(ctx, r.rows, r.present)
	if err != nil {
		return err
	}
	r.out = &domain.DerivedTable{Outcomes: outcomes}
	return nil
}

func (p *Pipeline) compose(_ context.Context, r *run, _ domain.ResponseTable) error {
	out := annotate.Compose(r.table.Columns, p.cfg, r.rows, r.out.Outcomes)
	out.RunID = r.id
	r.out = out
	return nil
}
