package rules

import (
	"strings"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Panel is the row set of one respondent. Rows holds positions into the
// table slice, in table order.
type Panel struct {
	Key  string
	Rows []int
}

// GroupByPanel partitions rows by the trimmed value of column. Panels come
// out in order of first appearance.
func GroupByPanel(rows []domain.DerivedRow, column string) []Panel {
	var panels []Panel
	index := make(map[string]int)
	for i, row := range rows {
		key := strings.TrimSpace(row.Cells[column])
		p, ok := index[key]
		if !ok {
			p = len(panels)
			index[key] = p
			panels = append(panels, Panel{Key: key})
		}
		panels[p].Rows = append(panels[p].Rows, i)
	}
	return panels
}

type dateKey struct{ month, day int }

// byDate splits a panel into (month, day) groups keeping table order inside
// each group.
func byDate(rows []domain.DerivedRow, positions []int) [][]int {
	var groups [][]int
	index := make(map[dateKey]int)
	for _, pos := range positions {
		k := dateKey{rows[pos].Month, rows[pos].Day}
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], pos)
	}
	return groups
}
