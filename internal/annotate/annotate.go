// Package annotate turns rule outcomes into the derived table: the ordered
// column layout, the per-row flags and the answer-combine label.
package annotate

import (
	"fmt"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Label formats the operator-facing summary of a response, e.g.
// "[03/15] A-01 (14:30~15:00)".
func Label(month, day int, product string, order int, start, end domain.Clock) string {
	return fmt.Sprintf("[%02d/%02d] %s-%02d (%s~%s)", month, day, product, order, start, end)
}

type slot struct {
	field domain.DerivedField
	rule  domain.Rule
	needs []string
}

// Layout computes the full output column list. Derived columns follow their
// source column; annotation columns of rules that were not evaluated and
// derived columns whose source is absent are left out.
func Layout(raw []string, cfg *config.Config, outcomes []domain.RuleOutcome) []domain.Column {
	c := cfg.Columns
	evaluated := make(map[domain.Rule]bool, len(outcomes))
	for _, o := range outcomes {
		evaluated[o.Rule] = o.Status == domain.StatusEvaluated
	}
	present := make(map[string]bool, len(raw))
	for _, name := range raw {
		present[name] = true
	}

	everything := []string{c.InputCol, c.ProductCol, c.OrderCol, c.StartCol, c.EndCol}
	after := map[string][]slot{
		c.InputCol: {
			{field: domain.FieldMonth, needs: []string{c.InputCol}},
			{field: domain.FieldDay, needs: []string{c.InputCol}},
			{rule: domain.RuleDayOrder},
		},
		c.OrderCol: {
			{rule: domain.RuleOrderSequence},
			{rule: domain.RuleDuplicateOrder},
		},
		c.ProductCol: {
			{rule: domain.RuleAnswerCount},
		},
		c.StartCol: {
			{field: domain.FieldStartHour, needs: []string{c.StartCol}},
			{field: domain.FieldStartMin, needs: []string{c.StartCol}},
		},
		c.EndCol: {
			{field: domain.FieldEndHour, needs: []string{c.EndCol}},
			{field: domain.FieldEndMin, needs: []string{c.EndCol}},
			{field: domain.FieldStartTime, needs: []string{c.StartCol}},
			{field: domain.FieldEndTime, needs: []string{c.EndCol}},
			{rule: domain.RuleTimeSequence},
			{rule: domain.RuleDuplicateAnswer},
			{field: domain.FieldLabel, needs: everything},
			{field: domain.FieldDuration, needs: []string{c.StartCol, c.EndCol}},
			{rule: domain.RuleDuration},
		},
	}

	columns := make([]domain.Column, 0, len(raw)+17)
	for _, name := range raw {
		columns = append(columns, domain.Column{Name: name, Kind: domain.KindRaw})
		for _, s := range after[name] {
			if s.rule != "" {
				if evaluated[s.rule] {
					columns = append(columns, domain.Column{
						Name: cfg.RuleColumn(s.rule),
						Kind: domain.KindAnnotation,
						Rule: s.rule,
					})
				}
				continue
			}
			if allPresent(s.needs, present) {
				columns = append(columns, domain.Column{
					Name:  cfg.FieldColumn(s.field),
					Kind:  domain.KindDerived,
					Field: s.field,
				})
			}
		}
	}
	return columns
}

func allPresent(names []string, present map[string]bool) bool {
	for _, n := range names {
		if !present[n] {
			return false
		}
	}
	return true
}

// Compose assembles the derived table. rows are consumed and must not be
// modified by the caller afterwards.
func Compose(raw []string, cfg *config.Config, rows []domain.DerivedRow, outcomes []domain.RuleOutcome) *domain.DerivedTable {
	flagged := make(map[domain.Rule]map[int]bool, len(outcomes))
	for _, o := range outcomes {
		if o.Status != domain.StatusEvaluated {
			continue
		}
		set := make(map[int]bool, len(o.Rows))
		for _, id := range o.Rows {
			set[id] = true
		}
		flagged[o.Rule] = set
	}

	for i := range rows {
		flags := make(map[domain.Rule]bool, len(flagged))
		for rule, set := range flagged {
			flags[rule] = set[rows[i].ID]
		}
		rows[i].Flags = flags
	}

	return &domain.DerivedTable{
		Columns:  Layout(raw, cfg, outcomes),
		Rows:     rows,
		Outcomes: outcomes,
	}
}
