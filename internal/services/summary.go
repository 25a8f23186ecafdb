package services

import (
	"sort"
	"strings"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/rules"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Summary is the dashboard view of a loaded workbook.
type Summary struct {
	Source    string         `json:"source"`
	Version   int            `json:"version"`
	RunID     string         `json:"run_id"`
	Responses int            `json:"responses"`
	Panels    int            `json:"panels"`
	Rules     []RuleSummary  `json:"rules"`
	ByDate    []DateCount    `json:"by_date,omitempty"`
	Products  []ProductCount `json:"products,omitempty"`
}

// RuleSummary counts the rows and panels a rule flagged.
type RuleSummary struct {
	Rule          domain.Rule       `json:"rule"`
	Title         string            `json:"title"`
	Column        string            `json:"column"`
	Status        domain.RuleStatus `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	FlaggedRows   int               `json:"flagged_rows"`
	FlaggedPanels int               `json:"flagged_panels"`
}

// DateCount is the number of responses submitted on one answer date.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProductCount is the number of responses for one product.
type ProductCount struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// BuildSummary summarizes a session state.
func BuildSummary(cfg *config.Config, st *workbook.State) *Summary {
	t := st.Derived
	s := &Summary{
		Source:    st.Source,
		Version:   st.Version,
		RunID:     t.RunID,
		Responses: len(t.Rows),
		Panels:    len(rules.GroupByPanel(t.Rows, cfg.Columns.PanelNo)),
	}

	for _, rule := range domain.Rules {
		o, ok := t.Outcome(rule)
		if !ok {
			continue
		}
		rs := RuleSummary{
			Rule:   rule,
			Title:  rule.Title(),
			Column: cfg.RuleColumn(rule),
			Status: o.Status,
			Reason: o.Reason,
		}
		if !o.Skipped() {
			rs.FlaggedRows = len(o.Rows)
			rs.FlaggedPanels = len(flaggedPanels(cfg, t, rule))
		}
		s.Rules = append(s.Rules, rs)
	}

	if col := cfg.Columns.AnswerDate; col != "" && st.Raw.HasColumn(col) {
		for _, c := range countBy(t.Rows, col, true) {
			s.ByDate = append(s.ByDate, DateCount{Date: c.key, Count: c.n})
		}
	}
	if st.Raw.HasColumn(cfg.Columns.ProductCol) {
		for _, c := range countBy(t.Rows, cfg.Columns.ProductCol, false) {
			s.Products = append(s.Products, ProductCount{Product: c.key, Count: c.n})
		}
	}
	return s
}

type keyCount struct {
	key string
	n   int
}

// countBy counts rows by the trimmed value of column, sorted by key or by
// descending count.
func countBy(rows []domain.DerivedRow, column string, byKey bool) []keyCount {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[strings.TrimSpace(row.Cells[column])]++
	}
	out := make([]keyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, keyCount{key: k, n: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if !byKey && out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

// PanelFlags lists the flagged rows of one panel.
type PanelFlags struct {
	Panel string `json:"panel"`
	Rows  []int  `json:"unique_ids"`
}

func flaggedPanels(cfg *config.Config, t *domain.DerivedTable, rule domain.Rule) []PanelFlags {
	var out []PanelFlags
	for _, p := range rules.GroupByPanel(t.Rows, cfg.Columns.PanelNo) {
		var ids []int
		for _, pos := range p.Rows {
			if t.Rows[pos].Flagged(rule) {
				ids = append(ids, t.Rows[pos].ID)
			}
		}
		if len(ids) > 0 {
			out = append(out, PanelFlags{Panel: p.Key, Rows: ids})
		}
	}
	return out
}
