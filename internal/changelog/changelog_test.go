package changelog

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/exporter"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

var (
	logColumns = []string{"unique_id", "PANELNO", "Q1", "Q2", "Q3", "Q4", "Q5"}
	editable   = []string{"Q1", "Q2", "Q3", "Q4", "Q5"}
	at         = time.Date(2025, 3, 15, 14, 30, 5, 0, time.Local)
)

func sampleRow() domain.ResponseRow {
	return domain.ResponseRow{ID: 7, Cells: map[string]string{
		"unique_id": "7", "PANELNO": "P1", "Q1": "3|15", "Q2": "4",
		"Q3": "A", "Q4": "14|30", "Q5": "15|0", "memo": "ignored",
	}}
}

func TestNewModify(t *testing.T) {
	before := sampleRow()
	after := before.Clone()
	after.Cells["Q2"] = "3"
	after.Cells["Q5"] = "15|10"

	e, ok := NewModify("order_error", at, before, after, logColumns, editable)
	require.True(t, ok)
	assert.Equal(t, MethodModify, e.Method)
	assert.Equal(t, "20250315_143005", e.UpdatedDate)
	assert.Equal(t, 7, e.RowID)
	assert.Equal(t, "4 > 3", e.Values["Q2"])
	assert.Equal(t, "15|0 > 15|10", e.Values["Q5"])
	assert.Equal(t, "A", e.Values["Q3"])
	assert.NotContains(t, e.Values, "memo")

	_, ok = NewModify("order_error", at, before, before.Clone(), logColumns, editable)
	assert.False(t, ok, "unchanged rows are not logged")
}

func TestLogDeduplicates(t *testing.T) {
	l := NewLog(logColumns)
	del := NewDelete("duplicate_error", at, sampleRow(), logColumns)

	assert.Equal(t, 1, l.Append(del))
	assert.Equal(t, 0, l.Append(del))

	later := NewDelete("duplicate_error", at.Add(time.Second), sampleRow(), logColumns)
	assert.Equal(t, 1, l.Append(later))
	assert.Equal(t, 2, l.Len())

	assert.Equal(t, []string{"ERROR_TYPE", "UPDATED_DATE", "METHOD", "unique_id", "PANELNO", "Q1", "Q2", "Q3", "Q4", "Q5"}, l.Header())
	assert.Equal(t, []string{"duplicate_error", "20250315_143005", "DELETE", "7", "P1", "3|15", "4", "A", "14|30", "15|0"}, l.Records()[0])
}

func TestCSVStore(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(exporter.NewCSVWriter(dir, nil), func(t time.Time) string {
		return "log_" + t.Format("20060102") + ".csv"
	})
	store.now = func() time.Time { return at }

	l := NewLog(logColumns)
	l.Append(NewDelete("time_error", at, sampleRow(), logColumns))
	require.NoError(t, store.Save(context.Background(), l))

	l.Append(NewDelete("time_error", at.Add(time.Minute), sampleRow(), logColumns))
	require.NoError(t, store.Save(context.Background(), l))
	require.NoError(t, store.Close())

	data, err := os.ReadFile(filepath.Join(dir, "log_20250315.csv"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3, "header plus the whole log, rewritten on each save")
	assert.Equal(t, "ERROR_TYPE", records[0][0])
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "changelog.db")

	store, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	before := sampleRow()
	after := before.Clone()
	after.Cells["Q3"] = "B"
	mod, ok := NewModify("answer_count_error", at, before, after, logColumns, editable)
	require.True(t, ok)

	l := NewLog(logColumns)
	l.Append(mod, NewDelete("answer_count_error", at, sampleRow(), logColumns))

	require.NoError(t, store.Save(ctx, l))
	require.NoError(t, store.Save(ctx, l), "saving twice stores nothing new")

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, MethodModify, entries[0].Method)
	assert.Equal(t, "A > B", entries[0].Values["Q3"])
	assert.Equal(t, MethodDelete, entries[1].Method)
	assert.Equal(t, 7, entries[1].RowID)

	require.NoError(t, store.Close())
	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err = reopened.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Default()
	paths := cfg.ResolvePaths(dir)

	store, err := OpenStore(ctx, cfg, paths, nil)
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, store)

	cfg.ChangeLog.Backend = "sqlite"
	cfg.ChangeLog.SQLitePath = filepath.Join(dir, "changelog.db")
	store, err = OpenStore(ctx, cfg, paths, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	cfg.ChangeLog.Backend = "postgres"
	_, err = OpenStore(ctx, cfg, paths, nil)
	assert.ErrorContains(t, err, "unknown change log backend")
}
