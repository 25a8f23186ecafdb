// Package fields decomposes packed "A|B" cells into typed values.
package fields

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Separator joins the two halves of a packed field.
const Separator = "|"

// Pair is a decoded packed field.
type Pair struct {
	A int
	B int
}

// String recombines the pair into its packed form.
func (p Pair) String() string {
	return strconv.Itoa(p.A) + Separator + strconv.Itoa(p.B)
}

// SplitPair parses "A|B" into two integers. Whitespace around either half is
// tolerated.
func SplitPair(value string) (Pair, error) {
	parts := strings.Split(value, Separator)
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("expected int%sint", Separator)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Pair{}, fmt.Errorf("left half %q is not an integer", parts[0])
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Pair{}, fmt.Errorf("right half %q is not an integer", parts[1])
	}
	return Pair{A: a, B: b}, nil
}

// ParseDate parses a packed "M|D" date.
func ParseDate(value string) (Pair, error) {
	p, err := SplitPair(value)
	if err != nil {
		return Pair{}, err
	}
	if p.A < 1 || p.A > 12 {
		return Pair{}, fmt.Errorf("month %d out of range", p.A)
	}
	if p.B < 1 || p.B > 31 {
		return Pair{}, fmt.Errorf("day %d out of range", p.B)
	}
	return p, nil
}

// ParseClock parses a packed "H|M" time of day.
func ParseClock(value string) (domain.Clock, error) {
	p, err := SplitPair(value)
	if err != nil {
		return domain.Clock{}, err
	}
	if p.A < 0 || p.A > 23 {
		return domain.Clock{}, fmt.Errorf("hour %d out of range", p.A)
	}
	if p.B < 0 || p.B > 59 {
		return domain.Clock{}, fmt.Errorf("minute %d out of range", p.B)
	}
	return domain.Clock{Hour: p.A, Minute: p.B}, nil
}

// ParseOrder parses the self-reported order number. Spreadsheet exports
// often carry integers as "3.0", which is accepted.
func ParseOrder(value string) (int, error) {
	s := strings.TrimSpace(value)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer")
	}
	return int(f), nil
}

// FieldError locates one malformed cell.
type FieldError struct {
	RowID  int    `json:"unique_id"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("row %d column %s value %q: %s", e.RowID, e.Column, e.Value, e.Reason)
}

// FieldErrors collects every malformed cell of a run.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	switch len(e) {
	case 0:
		return "no field errors"
	case 1:
		return e[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d malformed fields: ", len(e))
	for i, fe := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		if i == 5 {
			fmt.Fprintf(&b, "and %d more", len(e)-i)
			break
		}
		b.WriteString(fe.Error())
	}
	return b.String()
}

// Add records a failure for row/column.
func (e *FieldErrors) Add(rowID int, column, value string, err error) {
	*e = append(*e, FieldError{RowID: rowID, Column: column, Value: value, Reason: err.Error()})
}

// Err returns nil when nothing was collected.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
