package domain

import "fmt"

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// DerivedField names a computed value carried by a derived column.
type DerivedField string

const (
	FieldMonth     DerivedField = "month"
	FieldDay       DerivedField = "day"
	FieldStartHour DerivedField = "start_hour"
	FieldStartMin  DerivedField = "start_min"
	FieldStartTime DerivedField = "start_time"
	FieldEndHour   DerivedField = "end_hour"
	FieldEndMin    DerivedField = "end_min"
	FieldEndTime   DerivedField = "end_time"
	FieldLabel     DerivedField = "answer_combine"
	FieldDuration  DerivedField = "total_duration"
)

// ColumnKind tells consumers how to render a column.
type ColumnKind string

const (
	KindRaw        ColumnKind = "raw"
	KindDerived    ColumnKind = "derived"
	KindAnnotation ColumnKind = "annotation"
)

// Column describes one column of the derived table.
type Column struct {
	Name  string       `json:"name"`
	Kind  ColumnKind   `json:"kind"`
	Field DerivedField `json:"field,omitempty"`
	Rule  Rule         `json:"rule,omitempty"`
}

// DerivedRow is a response row with its decomposed fields and rule flags.
// Fields whose source column is absent keep their zero value and the Has*
// markers stay false.
type DerivedRow struct {
	ResponseRow
	Month    int           `json:"month"`
	Day      int           `json:"day"`
	Order    int           `json:"order"`
	Start    Clock         `json:"start"`
	End      Clock         `json:"end"`
	Duration int           `json:"total_duration"`
	Label    string        `json:"answer_combine"`
	Flags    map[Rule]bool `json:"flags"`

	HasDate  bool `json:"-"`
	HasOrder bool `json:"-"`
	HasStart bool `json:"-"`
	HasEnd   bool `json:"-"`
}

// Flagged reports whether the row is flagged by rule.
func (r DerivedRow) Flagged(rule Rule) bool {
	return r.Flags[rule]
}

// Value returns the text rendering of column c for this row. Annotation
// columns render as "true" / "false".
func (r DerivedRow) Value(c Column) string {
	switch c.Kind {
	case KindAnnotation:
		if r.Flags[c.Rule] {
			return "true"
		}
		return "false"
	case KindDerived:
		return r.derived(c.Field)
	default:
		return r.Cells[c.Name]
	}
}

func (r DerivedRow) derived(f DerivedField) string {
	switch f {
	case FieldMonth:
		return fmt.Sprint(r.Month)
	case FieldDay:
		return fmt.Sprint(r.Day)
	case FieldStartHour:
		return fmt.Sprint(r.Start.Hour)
	case FieldStartMin:
		return fmt.Sprint(r.Start.Minute)
	case FieldStartTime:
		return r.Start.String()
	case FieldEndHour:
		return fmt.Sprint(r.End.Hour)
	case FieldEndMin:
		return fmt.Sprint(r.End.Minute)
	case FieldEndTime:
		return r.End.String()
	case FieldLabel:
		return r.Label
	case FieldDuration:
		return fmt.Sprint(r.Duration)
	}
	return ""
}

// DerivedTable is the immutable output of one pipeline run.
type DerivedTable struct {
	RunID    string        `json:"run_id"`
	Columns  []Column      `json:"columns"`
	Rows     []DerivedRow  `json:"rows"`
	Outcomes []RuleOutcome `json:"outcomes"`
}

// Outcome returns the outcome recorded for rule.
func (t *DerivedTable) Outcome(rule Rule) (RuleOutcome, bool) {
	for _, o := range t.Outcomes {
		if o.Rule == rule {
			return o, true
		}
	}
	return RuleOutcome{}, false
}

// Column returns the column named name.
func (t *DerivedTable) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the ordered column names.
func (t *DerivedTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Records renders every row as strings in column order.
func (t *DerivedTable) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			rec[j] = row.Value(c)
		}
		out[i] = rec
	}
	return out
}

// Table renders the derived table back into a raw table carrying every
// column as text.
func (t *DerivedTable) Table() ResponseTable {
	out := ResponseTable{
		Columns: t.ColumnNames(),
		Rows:    make([]ResponseRow, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cells := make(map[string]string, len(t.Columns))
		for _, c := range t.Columns {
			cells[c.Name] = row.Value(c)
		}
		out.Rows[i] = ResponseRow{ID: row.ID, Cells: cells}
	}
	return out
}
