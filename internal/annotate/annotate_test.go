package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

func evaluatedAll() []domain.RuleOutcome {
	out := make([]domain.RuleOutcome, len(domain.Rules))
	for i, r := range domain.Rules {
		out[i] = domain.RuleOutcome{Rule: r, Status: domain.StatusEvaluated}
	}
	return out
}

func names(cols []domain.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestLabel(t *testing.T) {
	got := Label(3, 15, "A", 1, domain.Clock{Hour: 14, Minute: 30}, domain.Clock{Hour: 15})
	assert.Equal(t, "[03/15] A-01 (14:30~15:00)", got)

	got = Label(12, 1, "제품 C", 12, domain.Clock{Hour: 23, Minute: 5}, domain.Clock{Minute: 7})
	assert.Equal(t, "[12/01] 제품 C-12 (23:05~00:07)", got)
}

func TestLayoutFull(t *testing.T) {
	cfg := config.Default()
	raw := []string{"unique_id", "PANELNO", "Q1", "Q2", "Q3", "Q4", "Q5", "memo"}

	got := Layout(raw, cfg, evaluatedAll())
	assert.Equal(t, []string{
		"unique_id", "PANELNO",
		"Q1", "Q1_month", "Q1_day", "day_order_error",
		"Q2", "order_error", "duplicate_error",
		"Q3", "answer_count_error",
		"Q4", "Q4_hour", "Q4_min",
		"Q5", "Q5_hour", "Q5_min", "Q4_time", "Q5_time",
		"time_error", "start_end_duplicate", "answer_combine", "total_duration", "duration_error",
		"memo",
	}, names(got))

	kinds := map[string]domain.ColumnKind{}
	for _, c := range got {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, domain.KindRaw, kinds["Q3"])
	assert.Equal(t, domain.KindDerived, kinds["total_duration"])
	assert.Equal(t, domain.KindAnnotation, kinds["duration_error"])
}

func TestLayoutOmitsSkippedAndSourceless(t *testing.T) {
	cfg := config.Default()
	raw := []string{"unique_id", "PANELNO", "Q1", "Q3", "Q4", "Q5"}

	outcomes := evaluatedAll()
	for i := range outcomes {
		switch outcomes[i].Rule {
		case domain.RuleDuplicateAnswer, domain.RuleDuplicateOrder, domain.RuleOrderSequence:
			outcomes[i].Status = domain.StatusSkipped
		}
	}

	got := Layout(raw, cfg, outcomes)
	assert.Equal(t, []string{
		"unique_id", "PANELNO",
		"Q1", "Q1_month", "Q1_day", "day_order_error",
		"Q3", "answer_count_error",
		"Q4", "Q4_hour", "Q4_min",
		"Q5", "Q5_hour", "Q5_min", "Q4_time", "Q5_time",
		"time_error", "total_duration", "duration_error",
	}, names(got))
}

func TestLayoutUsesConfiguredNames(t *testing.T) {
	cfg := config.Default()
	cfg.ErrorColumns.DurationError = "wear_check"
	cfg.ErrorColumns.TotalDuration = "minutes"

	got := names(Layout([]string{"Q4", "Q5"}, cfg, evaluatedAll()))
	assert.Equal(t, []string{"Q4", "Q4_hour", "Q4_min", "Q5", "Q5_hour", "Q5_min", "Q4_time", "Q5_time", "time_error", "start_end_duplicate", "minutes", "wear_check"}, got)
}

func TestCompose(t *testing.T) {
	cfg := config.Default()
	rows := []domain.DerivedRow{
		{ResponseRow: domain.ResponseRow{ID: 1, Cells: map[string]string{}}},
		{ResponseRow: domain.ResponseRow{ID: 2, Cells: map[string]string{}}},
	}
	outcomes := evaluatedAll()
	outcomes[0].Rows = []int{2}
	outcomes[6].Rows = []int{1, 2}
	outcomes[3] = domain.RuleOutcome{Rule: domain.RuleOrderSequence, Status: domain.StatusSkipped, Reason: "column Q2 absent"}

	table := Compose([]string{"unique_id", "Q4", "Q5"}, cfg, rows, outcomes)
	require.Len(t, table.Rows, 2)

	assert.False(t, table.Rows[0].Flagged(domain.RuleDuplicateAnswer))
	assert.True(t, table.Rows[1].Flagged(domain.RuleDuplicateAnswer))
	assert.True(t, table.Rows[0].Flagged(domain.RuleDuration))
	assert.True(t, table.Rows[1].Flagged(domain.RuleDuration))

	_, hasSkipped := table.Rows[0].Flags[domain.RuleOrderSequence]
	assert.False(t, hasSkipped, "skipped rules carry no flag at all")

	o, ok := table.Outcome(domain.RuleOrderSequence)
	require.True(t, ok)
	assert.True(t, o.Skipped())
	_, ok = table.Column("order_error")
	assert.False(t, ok)
}
