package config

import "github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"

// InputMonth is the derived month column, e.g. "Q1_month".
func (c *Config) InputMonth() string { return c.Columns.InputCol + "_month" }

// InputDay is the derived day column.
func (c *Config) InputDay() string { return c.Columns.InputCol + "_day" }

func (c *Config) StartHour() string { return c.Columns.StartCol + "_hour" }
func (c *Config) StartMin() string  { return c.Columns.StartCol + "_min" }
func (c *Config) StartTime() string { return c.Columns.StartCol + "_time" }
func (c *Config) EndHour() string   { return c.Columns.EndCol + "_hour" }
func (c *Config) EndMin() string    { return c.Columns.EndCol + "_min" }
func (c *Config) EndTime() string   { return c.Columns.EndCol + "_time" }

// RuleColumn returns the configured annotation column for rule.
func (c *Config) RuleColumn(rule domain.Rule) string {
	e := c.ErrorColumns
	switch rule {
	case domain.RuleDuplicateAnswer:
		return e.StartEndDup
	case domain.RuleAnswerCount:
		return e.AnswerCountError
	case domain.RuleDuplicateOrder:
		return e.DuplicateError
	case domain.RuleOrderSequence:
		return e.OrderError
	case domain.RuleDayOrder:
		return e.DayOrderError
	case domain.RuleTimeSequence:
		return e.TimeError
	case domain.RuleDuration:
		return e.DurationError
	}
	return ""
}

// FieldColumn returns the column name of a derived field.
func (c *Config) FieldColumn(f domain.DerivedField) string {
	switch f {
	case domain.FieldMonth:
		return c.InputMonth()
	case domain.FieldDay:
		return c.InputDay()
	case domain.FieldStartHour:
		return c.StartHour()
	case domain.FieldStartMin:
		return c.StartMin()
	case domain.FieldStartTime:
		return c.StartTime()
	case domain.FieldEndHour:
		return c.EndHour()
	case domain.FieldEndMin:
		return c.EndMin()
	case domain.FieldEndTime:
		return c.EndTime()
	case domain.FieldLabel:
		return c.ErrorColumns.AnswerCombine
	case domain.FieldDuration:
		return c.ErrorColumns.TotalDuration
	}
	return ""
}

// DerivedColumns lists every column the pipeline produces. These are stripped
// from the input before each run.
func (c *Config) DerivedColumns() []string {
	fields := []domain.DerivedField{
		domain.FieldMonth, domain.FieldDay,
		domain.FieldStartHour, domain.FieldStartMin, domain.FieldStartTime,
		domain.FieldEndHour, domain.FieldEndMin, domain.FieldEndTime,
		domain.FieldLabel, domain.FieldDuration,
	}
	out := make([]string, 0, len(fields)+len(domain.Rules))
	for _, f := range fields {
		out = append(out, c.FieldColumn(f))
	}
	for _, r := range domain.Rules {
		out = append(out, c.RuleColumn(r))
	}
	return out
}

// EditableRole is one of the five operator-editable column roles.
type EditableRole string

const (
	RoleInput   EditableRole = "input"
	RoleOrder   EditableRole = "order"
	RoleProduct EditableRole = "product"
	RoleStart   EditableRole = "start"
	RoleEnd     EditableRole = "end"
)

// EditableRoles in log column order.
var EditableRoles = []EditableRole{RoleInput, RoleOrder, RoleProduct, RoleStart, RoleEnd}

// EditableColumn resolves an editable role to its column name.
func (c *Config) EditableColumn(role EditableRole) (string, bool) {
	switch role {
	case RoleInput:
		return c.Columns.InputCol, true
	case RoleOrder:
		return c.Columns.OrderCol, true
	case RoleProduct:
		return c.Columns.ProductCol, true
	case RoleStart:
		return c.Columns.StartCol, true
	case RoleEnd:
		return c.Columns.EndCol, true
	}
	return "", false
}

// LogColumns are the raw columns copied into every change log entry.
func (c *Config) LogColumns() []string {
	return []string{
		c.Columns.UniqueID,
		c.Columns.PanelNo,
		c.Columns.InputCol,
		c.Columns.OrderCol,
		c.Columns.ProductCol,
		c.Columns.StartCol,
		c.Columns.EndCol,
	}
}

// ImportColumns is the default column set of the export-for-import file.
func (c *Config) ImportColumns() []string {
	cols := []string{c.Columns.UniqueID}
	if c.Columns.PanelCode != "" {
		cols = append(cols, c.Columns.PanelCode)
	}
	return append(cols,
		c.Columns.PanelNo,
		c.InputMonth(),
		c.InputDay(),
		c.Columns.OrderCol,
		c.StartHour(),
		c.StartMin(),
		c.EndHour(),
		c.EndMin(),
	)
}
