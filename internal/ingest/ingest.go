// Package ingest reads survey exports into a response table and assigns the
// stable row identities.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// ErrUnsupportedFile is returned for anything but .xlsx and .csv.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ErrNoHeader is returned for an empty sheet or file.
var ErrNoHeader = errors.New("file has no header row")

// Options selects the sheet of an xlsx file. Sheet wins over SheetIndex;
// an out of range index falls back to the first sheet. xlsx cells are read
// as stored values; numeric cells under DateColumns are date serials and
// come back as DateLayout timestamps.
type Options struct {
	Sheet       string
	SheetIndex  int
	DateColumns []string
}

// DateLayout renders xlsx date cells. It orders the same as the dates.
const DateLayout = "2006-01-02 15:04:05"

// SheetNames lists the sheets of an xlsx file.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadFile loads the first-row-header table stored at path. Rows carry no
// identity yet; see Sort.
func ReadFile(path string, opts Options) (domain.ResponseTable, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path, opts)
	case ".csv":
		records, err = readCSV(path)
	default:
		return domain.ResponseTable{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}
	if err != nil {
		return domain.ResponseTable{}, err
	}
	return fromRecords(records)
}

func readXLSX(path string, opts Options) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
		if opts.SheetIndex >= 0 && opts.SheetIndex < len(sheets) {
			sheet = sheets[opts.SheetIndex]
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(opts.DateColumns) == 0 {
		return rows, nil
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	for c, name := range rows[0] {
		if !slices.Contains(opts.DateColumns, strings.TrimSpace(name)) {
			continue
		}
		for _, row := range rows[1:] {
			if c < len(row) {
				row[c] = dateCell(row[c], date1904)
			}
		}
	}
	return rows, nil
}

// dateCell turns an Excel date serial into a DateLayout timestamp. Text
// cells are returned unchanged.
func dateCell(v string, date1904 bool) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return v
	}
	return t.Round(time.Second).Format(DateLayout)
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func fromRecords(records [][]string) (domain.ResponseTable, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return domain.ResponseTable{}, ErrNoHeader
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			return domain.ResponseTable{}, fmt.Errorf("header column %d is empty", i+1)
		}
		if seen[h] {
			return domain.ResponseTable{}, fmt.Errorf("header column %q appears twice", h)
		}
		seen[h] = true
		header[i] = h
	}

	table := domain.ResponseTable{Columns: header}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		cells := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				cells[h] = rec[i]
			} else {
				cells[h] = ""
			}
		}
		table.Rows = append(table.Rows, domain.ResponseRow{Cells: cells})
	}
	return table, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Sort orders rows by panel, product and answer date, assigns IDs 1..N,
// writes them into the unique-id column and moves that column first.
// Values that both parse as numbers compare numerically.
func Sort(t domain.ResponseTable, cols config.ColumnsConfig) domain.ResponseTable {
	out := t.Clone()

	var keys []string
	for _, k := range []string{cols.PanelNo, cols.ProductCol, cols.AnswerDate} {
		if k != "" && out.HasColumn(k) {
			keys = append(keys, k)
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		for _, k := range keys {
			if c := compare(out.Rows[i].Cells[k], out.Rows[j].Cells[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	for i := range out.Rows {
		out.Rows[i].ID = i + 1
		out.Rows[i].Cells[cols.UniqueID] = strconv.Itoa(i + 1)
	}

	columns := []string{cols.UniqueID}
	for _, c := range out.Columns {
		if c != cols.UniqueID {
			columns = append(columns, c)
		}
	}
	out.Columns = columns
	return out
}

func compare(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
