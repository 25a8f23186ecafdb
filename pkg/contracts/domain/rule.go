package domain

import "fmt"

// Rule identifies one error-detection rule. The value is the canonical
// annotation column key; the actual column name is configurable.
type Rule string

const (
	RuleDuplicateAnswer Rule = "start_end_duplicate"
	RuleAnswerCount     Rule = "answer_count_error"
	RuleDuplicateOrder  Rule = "duplicate_error"
	RuleOrderSequence   Rule = "order_error"
	RuleDayOrder        Rule = "day_order_error"
	RuleTimeSequence    Rule = "time_error"
	RuleDuration        Rule = "duration_error"
)

// Rules lists every rule in review order (R1..R7).
var Rules = []Rule{
	RuleDuplicateAnswer,
	RuleAnswerCount,
	RuleDuplicateOrder,
	RuleOrderSequence,
	RuleDayOrder,
	RuleTimeSequence,
	RuleDuration,
}

var ruleTitles = map[Rule]string{
	RuleDuplicateAnswer: "Duplicate answer",
	RuleAnswerCount:     "Answer count exceeded",
	RuleDuplicateOrder:  "Duplicate order number",
	RuleOrderSequence:   "Order sequence error",
	RuleDayOrder:        "Day order error",
	RuleTimeSequence:    "Previous response time overlap",
	RuleDuration:        "Wear duration exceeded",
}

// Title returns the operator-facing name of the rule.
func (r Rule) Title() string {
	if t, ok := ruleTitles[r]; ok {
		return t
	}
	return string(r)
}

// IsCheck reports whether the rule produces a check column (rendered △)
// rather than an error column (rendered X).
func (r Rule) IsCheck() bool {
	return r == RuleDuration
}

// Valid reports whether r is a known rule.
func (r Rule) Valid() bool {
	_, ok := ruleTitles[r]
	return ok
}

// ParseRule converts a canonical rule key into a Rule.
func ParseRule(s string) (Rule, error) {
	r := Rule(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown rule %q", s)
	}
	return r, nil
}

// RuleStatus distinguishes "evaluated, maybe nothing flagged" from "not evaluable".
type RuleStatus string

const (
	StatusEvaluated RuleStatus = "evaluated"
	StatusSkipped   RuleStatus = "skipped"
)

// RuleOutcome is the result of one rule over the whole table.
type RuleOutcome struct {
	Rule   Rule       `json:"rule"`
	Status RuleStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
	Rows   []int      `json:"rows,omitempty"`
}

// Skipped reports whether the rule could not be evaluated.
func (o RuleOutcome) Skipped() bool {
	return o.Status == StatusSkipped
}
