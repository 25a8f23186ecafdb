package rules

import (
	"sort"
	"strings"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// check evaluates one rule over one panel and returns the flagged positions.
type check func(e *Engine, rows []domain.DerivedRow, panel Panel) []int

// duplicateAnswer flags every row whose label occurs more than once.
func duplicateAnswer(_ *Engine, rows []domain.DerivedRow, panel Panel) []int {
	counts := make(map[string]int, len(panel.Rows))
	for _, pos := range panel.Rows {
		counts[rows[pos].Label]++
	}
	var out []int
	for _, pos := range panel.Rows {
		if counts[rows[pos].Label] > 1 {
			out = append(out, pos)
		}
	}
	return out
}

// answerCount flags the tail rows of each configured product beyond the maximum.
// Product cells are trimmed before matching, so " A" counts as product A.
func answerCount(e *Engine, rows []domain.DerivedRow, panel Panel) []int {
	var out []int
	for _, product := range e.settings.ProductList {
		var matched []int
		for _, pos := range panel.Rows {
			if strings.TrimSpace(rows[pos].Cells[e.productCol]) == product {
				matched = append(matched, pos)
			}
		}
		if excess := len(matched) - e.settings.MaxAnswers; excess > 0 {
			out = append(out, matched[len(matched)-excess:]...)
		}
	}
	return out
}

// duplicateOrder flags rows sharing an order number on the same date.
func duplicateOrder(_ *Engine, rows []domain.DerivedRow, panel Panel) []int {
	var out []int
	for _, group := range byDate(rows, panel.Rows) {
		counts := make(map[int]int, len(group))
		for _, pos := range group {
			counts[rows[pos].Order]++
		}
		for _, pos := range group {
			if counts[rows[pos].Order] > 1 {
				out = append(out, pos)
			}
		}
	}
	return out
}

// orderSequence flags both rows of every gap in the sorted order numbers of a date.
func orderSequence(_ *Engine, rows []domain.DerivedRow, panel Panel) []int {
	var out []int
	for _, group := range byDate(rows, panel.Rows) {
		sorted := append([]int(nil), group...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return rows[sorted[i]].Order < rows[sorted[j]].Order
		})
		for i := 1; i < len(sorted); i++ {
			prev, curr := sorted[i-1], sorted[i]
			if rows[curr].Order != rows[prev].Order+1 {
				out = append(out, prev, curr)
			}
		}
	}
	return out
}

// dayOrder flags both rows when the day goes backwards in table order.
func dayOrder(_ *Engine, rows []domain.DerivedRow, panel Panel) []int {
	var out []int
	for i := 1; i < len(panel.Rows); i++ {
		prev, curr := panel.Rows[i-1], panel.Rows[i]
		if rows[curr].Day < rows[prev].Day {
			out = append(out, prev, curr)
		}
	}
	return out
}

// timeSequence flags a row that starts before the previous row of the same
// date ended.
func timeSequence(_ *Engine, rows []domain.DerivedRow, panel Panel) []int {
	var out []int
	for _, group := range byDate(rows, panel.Rows) {
		for i := 1; i < len(group); i++ {
			prev, curr := group[i-1], group[i]
			if rows[curr].Start.Minutes() < rows[prev].End.Minutes() {
				out = append(out, curr)
			}
		}
	}
	return out
}

// durationExceeded flags rows whose wear time is over the maximum.
func durationExceeded(e *Engine, rows []domain.DerivedRow, panel Panel) []int {
	var out []int
	for _, pos := range panel.Rows {
		if rows[pos].Duration > e.settings.DurationMax {
			out = append(out, pos)
		}
	}
	return out
}
