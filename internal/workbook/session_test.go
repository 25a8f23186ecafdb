package workbook

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/fields"
	"github.com/dlcks7456/diaryCleaning/internal/pipeline"
	"github.com/dlcks7456/diaryCleaning/internal/shared/testutil"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

var fixed = time.Date(2024, 3, 18, 9, 30, 0, 0, time.UTC)

type memoryStore struct {
	mu    sync.Mutex
	saves int
	last  []changelog.Entry
	err   error
}

func (m *memoryStore) Save(_ context.Context, log *changelog.Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.last = log.Entries()
	return nil
}

func (m *memoryStore) Close() error { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Validation.ProductList = []string{"A", "B"}
	cfg.Validation.MaxAnswers = 5
	cfg.Validation.DurationMax = 120
	return cfg
}

// rawTable rows are panel, date, order, product, start, end.
func rawTable(records ...[6]string) domain.ResponseTable {
	t := domain.ResponseTable{Columns: []string{"unique_id", "PANELNO", "Q1", "Q2", "Q3", "Q4", "Q5"}}
	for i, r := range records {
		id := i + 1
		t.Rows = append(t.Rows, domain.ResponseRow{ID: id, Cells: map[string]string{
			"unique_id": strconv.Itoa(id),
			"PANELNO":   r[0],
			"Q1":        r[1],
			"Q2":        r[2],
			"Q3":        r[3],
			"Q4":        r[4],
			"Q5":        r[5],
		}})
	}
	return t
}

func sample() domain.ResponseTable {
	return rawTable(
		[6]string{"P1", "3|15", "1", "A", "9|0", "9|30"},
		[6]string{"P1", "3|15", "2", "A", "10|0", "10|30"},
		[6]string{"P1", "3|15", "4", "A", "11|0", "11|30"},
		[6]string{"P2", "3|16", "1", "B", "9|0", "9|20"},
	)
}

func newSession(t *testing.T, store changelog.Store) *Session {
	t.Helper()
	cfg := testConfig()
	opts := []Option{WithClock(func() time.Time { return fixed })}
	if store != nil {
		opts = append(opts, WithStore(store))
	}
	s := NewSession(cfg, pipeline.New(cfg, nil), nil, opts...)
	_, err := s.Load(context.Background(), "raw.xlsx", sample())
	require.NoError(t, err)
	return s
}

func flaggedIDs(st *State, rule domain.Rule) []int {
	var ids []int
	for _, row := range st.Derived.Rows {
		if row.Flagged(rule) {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

func TestLoad(t *testing.T) {
	s := newSession(t, nil)
	st := s.Snapshot()
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Version)
	assert.Equal(t, "raw.xlsx", st.Source)
	assert.Equal(t, []int{2, 3}, flaggedIDs(st, domain.RuleOrderSequence))

	st, err := s.Load(context.Background(), "again.xlsx", sample())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Version)
}

func TestLoadLogsComponent(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	cfg := testConfig()
	s := NewSession(cfg, pipeline.New(cfg, logger), logger)
	_, err := s.Load(context.Background(), "raw.xlsx", sample())
	require.NoError(t, err)

	rec := testutil.AssertLogged(t, capture, slog.LevelInfo, "workbook loaded")
	assert.Equal(t, "workbook", rec.Attrs["component"])
	rec = testutil.AssertLogged(t, capture, slog.LevelInfo, "re-derivation started")
	assert.Equal(t, "pipeline", rec.Attrs["component"])
}

func TestLoadFailureKeepsState(t *testing.T) {
	s := newSession(t, nil)
	bad := sample()
	bad.Rows[0].Cells["Q1"] = "15"

	_, err := s.Load(context.Background(), "bad.xlsx", bad)
	var fe fields.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "raw.xlsx", s.Snapshot().Source)
}

func TestModifyClearsFlagAndLogs(t *testing.T) {
	store := &memoryStore{}
	s := newSession(t, store)

	st, err := s.Modify(context.Background(), "order_error", []Edit{
		{ID: 3, Fields: map[config.EditableRole]string{config.RoleOrder: " 3 "}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Version)
	assert.Empty(t, flaggedIDs(st, domain.RuleOrderSequence))
	assert.Equal(t, "3", st.Raw.Rows[2].Cells["Q2"])

	entries := s.ChangeLog().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, changelog.MethodModify, entries[0].Method)
	assert.Equal(t, "order_error", entries[0].ErrorType)
	assert.Equal(t, "20240318_093000", entries[0].UpdatedDate)
	assert.Equal(t, "4 > 3", entries[0].Values["Q2"])
	assert.Equal(t, "A", entries[0].Values["Q3"])
	assert.Equal(t, 1, store.saves)
}

func TestModifyWithoutChangeIsNotLogged(t *testing.T) {
	store := &memoryStore{}
	s := newSession(t, store)

	st, err := s.Modify(context.Background(), "order_error", []Edit{
		{ID: 1, Fields: map[config.EditableRole]string{config.RoleProduct: "A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Version)
	assert.Zero(t, s.ChangeLog().Len())
	assert.Zero(t, store.saves)
}

func TestModifyRejected(t *testing.T) {
	tests := []struct {
		name  string
		edits []Edit
		check func(t *testing.T, err error)
	}{
		{
			name:  "unknown row",
			edits: []Edit{{ID: 99, Fields: map[config.EditableRole]string{config.RoleOrder: "1"}}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRowNotFound)
				var nf *RowNotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, []int{99}, nf.IDs)
			},
		},
		{
			name:  "panel is not editable",
			edits: []Edit{{ID: 1, Fields: map[config.EditableRole]string{"panel": "P9"}}},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotEditable) },
		},
		{
			name:  "malformed clock",
			edits: []Edit{{ID: 2, Fields: map[config.EditableRole]string{config.RoleStart: "25|00"}}},
			check: func(t *testing.T, err error) {
				var fe fields.FieldErrors
				require.ErrorAs(t, err, &fe)
				require.Len(t, fe, 1)
				assert.Equal(t, 2, fe[0].RowID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, nil)
			before := s.Snapshot()

			_, err := s.Modify(context.Background(), "order_error", tt.edits)
			require.Error(t, err)
			tt.check(t, err)

			assert.Same(t, before, s.Snapshot(), "state is not swapped")
			assert.Zero(t, s.ChangeLog().Len())
		})
	}
}

func TestDelete(t *testing.T) {
	store := &memoryStore{}
	s := newSession(t, store)

	st, err := s.Delete(context.Background(), "order_error", []int{3})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, st.Raw.IDs())
	assert.Empty(t, flaggedIDs(st, domain.RuleOrderSequence))
	for _, row := range st.Derived.Rows {
		assert.NotEqual(t, 3, row.ID, "ids are never reused")
	}

	entries := s.ChangeLog().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, changelog.MethodDelete, entries[0].Method)
	assert.Equal(t, 3, entries[0].RowID)
	assert.Equal(t, "4", entries[0].Values["Q2"])
	assert.Equal(t, 1, store.saves)
}

func TestDeleteRejected(t *testing.T) {
	s := newSession(t, nil)
	before := s.Snapshot()

	_, err := s.Delete(context.Background(), "order_error", []int{1, 42})
	assert.ErrorIs(t, err, ErrRowNotFound)

	_, err = s.Delete(context.Background(), "order_error", []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, pipeline.ErrEmptyTable)

	assert.Same(t, before, s.Snapshot())
	assert.Equal(t, 4, len(s.Snapshot().Raw.Rows))
}

func TestEditBeforeLoad(t *testing.T) {
	cfg := testConfig()
	s := NewSession(cfg, pipeline.New(cfg, nil), nil)
	assert.Nil(t, s.Snapshot())

	_, err := s.Modify(context.Background(), "order_error", nil)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.Delete(context.Background(), "order_error", []int{1})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestStoreFailureStillApplies(t *testing.T) {
	store := &memoryStore{err: errors.New("disk full")}
	s := newSession(t, store)

	st, err := s.Delete(context.Background(), "order_error", []int{4})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, st)
	assert.Equal(t, []int{1, 2, 3}, s.Snapshot().Raw.IDs())
}

func TestConcurrentReaders(t *testing.T) {
	s := newSession(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				st := s.Snapshot()
				assert.Equal(t, len(st.Raw.Rows), len(st.Derived.Rows))
			}
		}()
	}
	for _, order := range []string{"3", "4", "3"} {
		_, err := s.Modify(context.Background(), "order_error", []Edit{
			{ID: 3, Fields: map[config.EditableRole]string{config.RoleOrder: order}},
		})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, 4, s.Snapshot().Version)
}
