package domain

import "sort"

// ResponseRow is one reported wear event. Cells hold the raw text of every
// ingested column keyed by column name.
type ResponseRow struct {
	ID    int               `json:"unique_id"`
	Cells map[string]string `json:"cells"`
}

// Get returns the raw cell text for column and whether the row carries it.
func (r ResponseRow) Get(column string) (string, bool) {
	v, ok := r.Cells[column]
	return v, ok
}

// Clone returns a deep copy of the row.
func (r ResponseRow) Clone() ResponseRow {
	cells := make(map[string]string, len(r.Cells))
	for k, v := range r.Cells {
		cells[k] = v
	}
	return ResponseRow{ID: r.ID, Cells: cells}
}

// ResponseTable is the raw table in ingestion order. Table order is ascending
// ID and is never re-sorted after ingestion.
type ResponseTable struct {
	Columns []string      `json:"columns"`
	Rows    []ResponseRow `json:"rows"`
}

// Clone returns a deep copy of the table.
func (t ResponseTable) Clone() ResponseTable {
	out := ResponseTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]ResponseRow, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// HasColumn reports whether the table header contains name.
func (t ResponseTable) HasColumn(name string) bool {
	return t.IndexOf(name) >= 0
}

// IndexOf returns the header position of name or -1.
func (t ResponseTable) IndexOf(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Without returns a copy of the table with the named columns removed from the
// header and from every row. Names not present are ignored.
func (t ResponseTable) Without(names ...string) ResponseTable {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	out := ResponseTable{Rows: make([]ResponseRow, len(t.Rows))}
	for _, c := range t.Columns {
		if _, ok := drop[c]; !ok {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, row := range t.Rows {
		cells := make(map[string]string, len(row.Cells))
		for k, v := range row.Cells {
			if _, ok := drop[k]; !ok {
				cells[k] = v
			}
		}
		out.Rows[i] = ResponseRow{ID: row.ID, Cells: cells}
	}
	return out
}

// RowIndex maps row IDs to their position in the table.
func (t ResponseTable) RowIndex() map[int]int {
	idx := make(map[int]int, len(t.Rows))
	for i, row := range t.Rows {
		idx[row.ID] = i
	}
	return idx
}

// IDs returns the sorted row IDs.
func (t ResponseTable) IDs() []int {
	ids := make([]int, len(t.Rows))
	for i, row := range t.Rows {
		ids[i] = row.ID
	}
	sort.Ints(ids)
	return ids
}
