package exporter

import "github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"

const (
	errorMark = "X"
	checkMark = "△"
)

// formatFlag renders an annotation cell: X for error rules, △ for check
// rules, empty when the row is not flagged.
func formatFlag(rule domain.Rule, flagged bool) string {
	if !flagged {
		return ""
	}
	if rule.IsCheck() {
		return checkMark
	}
	return errorMark
}

// cellValue returns the value written to a spreadsheet cell. Numeric
// derived fields stay numeric.
func cellValue(row domain.DerivedRow, c domain.Column) interface{} {
	switch c.Kind {
	case domain.KindAnnotation:
		return formatFlag(c.Rule, row.Flags[c.Rule])
	case domain.KindDerived:
		switch c.Field {
		case domain.FieldMonth:
			return row.Month
		case domain.FieldDay:
			return row.Day
		case domain.FieldStartHour:
			return row.Start.Hour
		case domain.FieldStartMin:
			return row.Start.Minute
		case domain.FieldEndHour:
			return row.End.Hour
		case domain.FieldEndMin:
			return row.End.Minute
		case domain.FieldDuration:
			return row.Duration
		}
	}
	return row.Value(c)
}

// displayWidth counts non-ASCII runes double, matching how spreadsheet
// fonts render Hangul.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		if r > 127 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// DerivedRecords renders the derived table for CSV output with the same
// marks as the workbook.
func DerivedRecords(t *domain.DerivedTable) [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			if c.Kind == domain.KindAnnotation {
				rec[j] = formatFlag(c.Rule, row.Flags[c.Rule])
				continue
			}
			rec[j] = row.Value(c)
		}
		out[i] = rec
	}
	return out
}
