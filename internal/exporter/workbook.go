package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

const (
	// DerivedSheet is the sheet holding the converted table.
	DerivedSheet = "Raw data"
	// ImportSheet is the sheet of the export-for-import file.
	ImportSheet = "Raw Data"
	// TableName is the autofilter table spanning the derived sheet.
	TableName = "ConvertedDataTable"

	minColumnWidth = 10
	maxColumnWidth = 50
)

var (
	headerColor        = "24AADF"
	derivedHeaderColor = "FFD6A3"
	bandColors         = [2]string{"FFFFFF", "E9ECEF"}
	errorColor         = "FFCCCC"
	checkColor         = "FFFFCC"
	borderColor        = "E0E0E0"
)

// WorkbookWriter writes derived tables as xlsx workbooks.
type WorkbookWriter struct {
	panelCol string
	logger   *slog.Logger
}

// NewWorkbookWriter creates a writer; panelCol drives banding and the frozen pane.
func NewWorkbookWriter(panelCol string, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{panelCol: panelCol, logger: logger.With("component", "workbook_writer")}
}

type styles struct {
	header        int
	derivedHeader int
	band          [2]int
	bandCenter    [2]int
	errorCell     int
	checkCell     int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColor, Style: 1},
		{Type: "right", Color: borderColor, Style: 1},
		{Type: "top", Color: borderColor, Style: 1},
		{Type: "bottom", Color: borderColor, Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	center := &excelize.Alignment{Horizontal: "center"}

	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Fill: fill(headerColor), Border: border,
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
	}); err != nil {
		return nil, err
	}
	if s.derivedHeader, err = f.NewStyle(&excelize.Style{
		Fill: fill(derivedHeaderColor), Border: border,
		Font: &excelize.Font{Bold: true, Color: "000000", Size: 11},
	}); err != nil {
		return nil, err
	}
	for i, color := range bandColors {
		if s.band[i], err = f.NewStyle(&excelize.Style{Fill: fill(color), Border: border}); err != nil {
			return nil, err
		}
		if s.bandCenter[i], err = f.NewStyle(&excelize.Style{Fill: fill(color), Border: border, Alignment: center}); err != nil {
			return nil, err
		}
	}
	if s.errorCell, err = f.NewStyle(&excelize.Style{Fill: fill(errorColor), Border: border, Alignment: center}); err != nil {
		return nil, err
	}
	if s.checkCell, err = f.NewStyle(&excelize.Style{Fill: fill(checkColor), Border: border, Alignment: center}); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteDerived writes the styled converted workbook to path.
func (w *WorkbookWriter) WriteDerived(path string, t *domain.DerivedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DerivedSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	ncol := len(t.Columns)
	widths := make([]int, ncol)
	panelIdx := -1

	header := make([]interface{}, ncol)
	for j, c := range t.Columns {
		header[j] = c.Name
		widths[j] = displayWidth(c.Name)
		if c.Name == w.panelCol && c.Kind == domain.KindRaw {
			panelIdx = j
		}
	}
	if err := f.SetSheetRow(DerivedSheet, "A1", &header); err != nil {
		return err
	}
	for j, c := range t.Columns {
		style := st.header
		if c.Kind == domain.KindDerived {
			style = st.derivedHeader
		}
		cell := mustCell(j+1, 1)
		if err := f.SetCellStyle(DerivedSheet, cell, cell, style); err != nil {
			return err
		}
	}

	band := make(map[string]int)
	for i, row := range t.Rows {
		r := i + 2
		values := make([]interface{}, ncol)
		for j, c := range t.Columns {
			values[j] = cellValue(row, c)
			if n := displayWidth(fmt.Sprint(values[j])); n > widths[j] {
				widths[j] = n
			}
		}
		if err := f.SetSheetRow(DerivedSheet, mustCell(1, r), &values); err != nil {
			return err
		}

		b := 0
		if panelIdx >= 0 {
			key := strings.TrimSpace(row.Cells[w.panelCol])
			idx, ok := band[key]
			if !ok {
				idx = len(band) % 2
				band[key] = idx
			}
			b = idx
		}
		if ncol > 0 {
			if err := f.SetCellStyle(DerivedSheet, mustCell(1, r), mustCell(ncol, r), st.band[b]); err != nil {
				return err
			}
		}
		for j, c := range t.Columns {
			if c.Kind != domain.KindAnnotation {
				continue
			}
			style := st.bandCenter[b]
			if row.Flags[c.Rule] {
				style = st.errorCell
				if c.Rule.IsCheck() {
					style = st.checkCell
				}
			}
			cell := mustCell(j+1, r)
			if err := f.SetCellStyle(DerivedSheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	for j, n := range widths {
		name, _ := excelize.ColumnNumberToName(j + 1)
		width := float64(min(max(n+2, minColumnWidth), maxColumnWidth))
		if err := f.SetColWidth(DerivedSheet, name, name, width); err != nil {
			return err
		}
	}

	panes := &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}
	if panelIdx >= 0 {
		panes.XSplit = panelIdx + 1
		panes.TopLeftCell = mustCell(panelIdx+2, 2)
		panes.ActivePane = "bottomRight"
	}
	if err := f.SetPanes(DerivedSheet, panes); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if len(t.Rows) > 0 && ncol > 0 {
		noStripes := false
		if err := f.AddTable(DerivedSheet, &excelize.Table{
			Range:          "A1:" + mustCell(ncol, len(t.Rows)+1),
			Name:           TableName,
			StyleName:      "TableStyleLight1",
			ShowRowStripes: &noStripes,
		}); err != nil {
			return fmt.Errorf("failed to add table: %w", err)
		}
	}

	if err := w.save(f, path); err != nil {
		return err
	}
	w.logger.Info("derived workbook written",
		slog.String("path", path),
		slog.Int("rows", len(t.Rows)),
		slog.Int("columns", ncol))
	return nil
}

// MissingColumnsError lists requested columns absent from the table.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "columns not in table: " + strings.Join(e.Columns, ", ")
}

// WriteImport writes the plain export-for-import subset. Every requested
// column must exist in the derived table.
func (w *WorkbookWriter) WriteImport(path string, t *domain.DerivedTable, columns []string) error {
	selected := make([]domain.Column, 0, len(columns))
	var missing []string
	for _, name := range columns {
		c, ok := t.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected = append(selected, c)
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), ImportSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(selected))
	for j, c := range selected {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(ImportSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		values := make([]interface{}, len(selected))
		for j, c := range selected {
			values[j] = cellValue(row, c)
		}
		if err := f.SetSheetRow(ImportSheet, mustCell(1, i+2), &values); err != nil {
			return err
		}
	}

	if err := w.save(f, path); err != nil {
		return err
	}
	w.logger.Info("import workbook written", slog.String("path", path), slog.Int("rows", len(t.Rows)))
	return nil
}

func (w *WorkbookWriter) save(f *excelize.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func mustCell(col, row int) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(err)
	}
	return cell
}
