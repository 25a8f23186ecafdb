package ingest

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

func writeWorkbook(t *testing.T, sheets map[string][][]string, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellStr(name, cell, v))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "raw.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadFileXLSX(t *testing.T) {
	sheets := map[string][][]string{
		"Summary": {{"note"}, {"ignored"}},
		"Data": {
			{"PANELNO", "Q1", "Q3"},
			{"P1", "3|14", "A"},
			{"", "", ""},
			{"P2", "3|15"},
		},
	}
	path := writeWorkbook(t, sheets, []string{"Summary", "Data"})

	tests := []struct {
		name    string
		opts    Options
		columns []string
		rows    int
	}{
		{"by name", Options{Sheet: "Data"}, []string{"PANELNO", "Q1", "Q3"}, 2},
		{"by index", Options{SheetIndex: 1}, []string{"PANELNO", "Q1", "Q3"}, 2},
		{"index out of range", Options{SheetIndex: 5}, []string{"note"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadFile(path, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, table.Columns)
			assert.Len(t, table.Rows, tt.rows)
		})
	}

	table, err := ReadFile(path, Options{Sheet: "Data"})
	require.NoError(t, err)
	assert.Equal(t, "", table.Rows[1].Cells["Q3"], "short rows are padded")

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", "Data"}, names)
}

func TestReadFileXLSXDateCells(t *testing.T) {
	cols := config.Default().Columns
	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	require.NoError(t, err)
	header := []interface{}{cols.PanelNo, cols.ProductCol, cols.AnswerDate, "tag"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	rows := []struct {
		date time.Time
		tag  string
	}{
		{time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), "later"},
		{time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), "earlier"},
	}
	for i, r := range rows {
		n := i + 2
		require.NoError(t, f.SetCellValue("Sheet1", "A"+strconv.Itoa(n), 1))
		require.NoError(t, f.SetCellStr("Sheet1", "B"+strconv.Itoa(n), "A"))
		require.NoError(t, f.SetCellValue("Sheet1", "C"+strconv.Itoa(n), r.date))
		require.NoError(t, f.SetCellStyle("Sheet1", "C"+strconv.Itoa(n), "C"+strconv.Itoa(n), dateStyle))
		require.NoError(t, f.SetCellStr("Sheet1", "D"+strconv.Itoa(n), r.tag))
	}
	require.NoError(t, f.SetCellStr("Sheet1", "C4", "2024-03-10 09:00:00"))
	require.NoError(t, f.SetCellValue("Sheet1", "A4", 1))
	require.NoError(t, f.SetCellStr("Sheet1", "B4", "A"))
	require.NoError(t, f.SetCellStr("Sheet1", "D4", "typed"))
	path := filepath.Join(t.TempDir(), "dated.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := ReadFile(path, Options{DateColumns: []string{cols.AnswerDate}})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 09:00:00", table.Rows[0].Cells[cols.AnswerDate])
	assert.Equal(t, "1", table.Rows[0].Cells[cols.PanelNo])

	sorted := Sort(table, cols)
	var tags []string
	for _, r := range sorted.Rows {
		tags = append(tags, r.Cells["tag"])
	}
	assert.Equal(t, []string{"earlier", "typed", "later"}, tags, "rows follow the answer date")
	assert.Equal(t, "2024-03-05 09:00:00", sorted.Rows[0].Cells[cols.AnswerDate])
}

func TestReadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	content := "\xEF\xBB\xBFPANELNO,Q1,Q2\nP1,3|14,1\nP1,3|14,2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"PANELNO", "Q1", "Q2"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2", table.Rows[1].Cells["Q2"])
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "raw.txt"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadFile(empty, Options{})
	assert.ErrorIs(t, err, ErrNoHeader)

	dup := filepath.Join(dir, "dup.csv")
	require.NoError(t, os.WriteFile(dup, []byte("Q1,Q1\na,b\n"), 0o644))
	_, err = ReadFile(dup, Options{})
	assert.ErrorContains(t, err, "appears twice")
}

func TestSort(t *testing.T) {
	cols := config.Default().Columns
	row := func(panel, product, date string) domain.ResponseRow {
		return domain.ResponseRow{Cells: map[string]string{
			cols.PanelNo:    panel,
			cols.ProductCol: product,
			cols.AnswerDate: date,
		}}
	}
	raw := domain.ResponseTable{
		Columns: []string{cols.PanelNo, cols.ProductCol, cols.AnswerDate},
		Rows: []domain.ResponseRow{
			row("10", "A", "2024-03-02"),
			row("9", "B", "2024-03-01"),
			row("9", "A", "2024-03-02"),
			row("9", "A", "2024-03-01"),
			row("10", "A", "2024-03-02"),
		},
	}

	sorted := Sort(raw, cols)

	assert.Equal(t, []string{cols.UniqueID, cols.PanelNo, cols.ProductCol, cols.AnswerDate}, sorted.Columns)
	var got [][3]string
	for i, r := range sorted.Rows {
		assert.Equal(t, i+1, r.ID)
		assert.Equal(t, strconv.Itoa(r.ID), r.Cells[cols.UniqueID])
		got = append(got, [3]string{r.Cells[cols.PanelNo], r.Cells[cols.ProductCol], r.Cells[cols.AnswerDate]})
	}
	assert.Equal(t, [][3]string{
		{"9", "A", "2024-03-01"},
		{"9", "A", "2024-03-02"},
		{"9", "B", "2024-03-01"},
		{"10", "A", "2024-03-02"},
		{"10", "A", "2024-03-02"},
	}, got, "panel numbers compare numerically")

	assert.Empty(t, raw.Rows[0].Cells[cols.UniqueID], "input is not mutated")
}

func TestSortExistingIDColumn(t *testing.T) {
	cols := config.Default().Columns
	raw := domain.ResponseTable{
		Columns: []string{cols.PanelNo, cols.UniqueID},
		Rows: []domain.ResponseRow{
			{Cells: map[string]string{cols.PanelNo: "2", cols.UniqueID: "77"}},
			{Cells: map[string]string{cols.PanelNo: "1", cols.UniqueID: "12"}},
		},
	}

	sorted := Sort(raw, cols)
	assert.Equal(t, []string{cols.UniqueID, cols.PanelNo}, sorted.Columns)
	assert.Equal(t, "1", sorted.Rows[0].Cells[cols.UniqueID])
	assert.Equal(t, "1", sorted.Rows[0].Cells[cols.PanelNo])
}
