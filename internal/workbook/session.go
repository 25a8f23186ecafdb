// Package workbook holds the loaded table of an editing session and applies
// operator edits by re-deriving the whole table.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/internal/pipeline"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

var (
	// ErrNotLoaded is returned by edits before the first Load.
	ErrNotLoaded = errors.New("no workbook loaded")
	// ErrNotEditable is returned for a field outside the editable roles.
	ErrNotEditable = errors.New("field is not editable")
	// ErrRowNotFound is wrapped by RowNotFoundError.
	ErrRowNotFound = errors.New("row not found")
)

// RowNotFoundError names the unknown row IDs of an edit.
type RowNotFoundError struct {
	IDs []int
}

func (e *RowNotFoundError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return "rows not found: " + strings.Join(ids, ", ")
}

// Unwrap lets errors.Is match ErrRowNotFound.
func (e *RowNotFoundError) Unwrap() error { return ErrRowNotFound }

// Edit replaces editable fields of one row.
type Edit struct {
	ID     int                            `json:"unique_id" validate:"gt=0"`
	Fields map[config.EditableRole]string `json:"fields" validate:"required,min=1"`
}

// State is an immutable snapshot of the session.
type State struct {
	Raw     domain.ResponseTable
	Derived *domain.DerivedTable
	Source  string
	Version int
}

// Session serializes writers and publishes snapshots readers can use
// without locking.
type Session struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	log      *changelog.Log
	store    changelog.Store
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state atomic.Pointer[State]
}

// Option configures a Session.
type Option func(*Session)

// WithStore persists the change log after every applied edit.
func WithStore(s changelog.Store) Option {
	return func(sess *Session) { sess.store = s }
}

// WithMetrics records edit counters.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(sess *Session) { sess.metrics = m }
}

// WithClock overrides the change log timestamp source.
func WithClock(now func() time.Time) Option {
	return func(sess *Session) { sess.now = now }
}

// NewSession creates an empty session around p.
func NewSession(cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		pipeline: p,
		log:      changelog.NewLog(cfg.LogColumns()),
		logger:   infrastructure.WithComponent(logger, "workbook"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state or nil before the first Load.
func (s *Session) Snapshot() *State {
	return s.state.Load()
}

// ChangeLog returns the session change log. It survives reloads.
func (s *Session) ChangeLog() *changelog.Log {
	return s.log
}

// Load derives raw and replaces the session table. The previous table stays
// in place when derivation fails.
func (s *Session) Load(ctx context.Context, source string, raw domain.ResponseTable) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	derived, err := s.pipeline.Run(ctx, raw)
	if err != nil {
		return nil, err
	}

	version := 1
	if cur := s.state.Load(); cur != nil {
		version = cur.Version + 1
	}
	next := &State{Raw: raw.Clone(), Derived: derived, Source: source, Version: version}
	s.state.Store(next)

	s.logger.InfoContext(ctx, "workbook loaded",
		slog.String("source", source),
		slog.Int("rows", len(raw.Rows)),
		slog.String("run_id", derived.RunID))
	return next, nil
}

// Modify applies edits and re-derives. Nothing changes unless every edit is
// valid and the re-derivation succeeds. A change log persistence failure is
// returned after the edit has been applied.
func (s *Session) Modify(ctx context.Context, errorType string, edits []Edit) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if cur == nil {
		return nil, ErrNotLoaded
	}

	raw := cur.Raw.Clone()
	index := raw.RowIndex()
	editable := s.editableColumns(raw)

	var missing []int
	for _, e := range edits {
		pos, ok := index[e.ID]
		if !ok {
			missing = append(missing, e.ID)
			continue
		}
		for role, value := range e.Fields {
			col, ok := s.cfg.EditableColumn(role)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotEditable, role)
			}
			if !raw.HasColumn(col) {
				return nil, fmt.Errorf("%w: column %s absent", ErrNotEditable, col)
			}
			raw.Rows[pos].Cells[col] = strings.TrimSpace(value)
		}
	}
	if len(missing) > 0 {
		return nil, &RowNotFoundError{IDs: missing}
	}

	next, err := s.rederive(ctx, cur, raw)
	if err != nil {
		return nil, err
	}

	at := s.now()
	before := cur.Raw.RowIndex()
	var entries []changelog.Entry
	for _, e := range edits {
		old := cur.Raw.Rows[before[e.ID]]
		now := raw.Rows[index[e.ID]]
		if entry, ok := changelog.NewModify(errorType, at, old, now, s.cfg.LogColumns(), editable); ok {
			entries = append(entries, entry)
		}
	}

	infrastructure.RecordEdit(ctx, s.metrics, string(changelog.MethodModify), len(entries))
	return next, s.record(ctx, changelog.MethodModify, entries)
}

// Delete removes rows and re-derives. Deleting every row fails with
// pipeline.ErrEmptyTable and leaves the table untouched.
func (s *Session) Delete(ctx context.Context, errorType string, ids []int) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if cur == nil {
		return nil, ErrNotLoaded
	}

	index := cur.Raw.RowIndex()
	drop := make(map[int]bool, len(ids))
	var missing []int
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			missing = append(missing, id)
			continue
		}
		drop[id] = true
	}
	if len(missing) > 0 {
		return nil, &RowNotFoundError{IDs: missing}
	}

	raw := domain.ResponseTable{Columns: append([]string(nil), cur.Raw.Columns...)}
	var removed []domain.ResponseRow
	for _, row := range cur.Raw.Rows {
		if drop[row.ID] {
			removed = append(removed, row)
			continue
		}
		raw.Rows = append(raw.Rows, row.Clone())
	}

	next, err := s.rederive(ctx, cur, raw)
	if err != nil {
		return nil, err
	}

	at := s.now()
	entries := make([]changelog.Entry, 0, len(removed))
	for _, row := range removed {
		entries = append(entries, changelog.NewDelete(errorType, at, row, s.cfg.LogColumns()))
	}

	infrastructure.RecordEdit(ctx, s.metrics, string(changelog.MethodDelete), len(entries))
	return next, s.record(ctx, changelog.MethodDelete, entries)
}

func (s *Session) rederive(ctx context.Context, cur *State, raw domain.ResponseTable) (*State, error) {
	derived, err := s.pipeline.Run(ctx, raw)
	if err != nil {
		return nil, err
	}
	next := &State{Raw: raw, Derived: derived, Source: cur.Source, Version: cur.Version + 1}
	s.state.Store(next)
	return next, nil
}

func (s *Session) record(ctx context.Context, method changelog.Method, entries []changelog.Entry) error {
	added := s.log.Append(entries...)
	s.logger.InfoContext(ctx, "edit applied",
		slog.String("method", string(method)),
		slog.Int("entries", added))
	if added == 0 || s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.log); err != nil {
		s.logger.ErrorContext(ctx, "change log not saved", slog.String("error", err.Error()))
		return fmt.Errorf("edit applied but change log not saved: %w", err)
	}
	return nil
}

func (s *Session) editableColumns(raw domain.ResponseTable) []string {
	var cols []string
	for _, role := range config.EditableRoles {
		if col, ok := s.cfg.EditableColumn(role); ok && raw.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	return cols
}
