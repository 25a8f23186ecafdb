// Package rules implements the seven per-panel error-detection rules.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Settings are the thresholds the rules read.
type Settings struct {
	ProductList []string
	MaxAnswers  int
	DurationMax int
	Workers     int
}

// SettingsFrom extracts rule settings from the validation section.
func SettingsFrom(v config.ValidationConfig) Settings {
	products := make([]string, len(v.ProductList))
	for i, p := range v.ProductList {
		products[i] = strings.TrimSpace(p)
	}
	return Settings{
		ProductList: products,
		MaxAnswers:  v.MaxAnswers,
		DurationMax: v.DurationMax,
		Workers:     v.Workers,
	}
}

type definition struct {
	rule  domain.Rule
	needs []string
	check check
}

// Engine evaluates every rule over a table, panel by panel.
type Engine struct {
	settings   Settings
	panelCol   string
	productCol string
	defs       []definition
	logger     *slog.Logger
}

// NewEngine builds an engine from a validated configuration.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	c := cfg.Columns
	date := c.InputCol
	return &Engine{
		settings:   SettingsFrom(cfg.Validation),
		panelCol:   c.PanelNo,
		productCol: c.ProductCol,
		logger:     infrastructure.WithComponent(logger, "rules"),
		defs: []definition{
			{domain.RuleDuplicateAnswer, []string{date, c.ProductCol, c.OrderCol, c.StartCol, c.EndCol}, duplicateAnswer},
			{domain.RuleAnswerCount, []string{c.ProductCol}, answerCount},
			{domain.RuleDuplicateOrder, []string{date, c.OrderCol}, duplicateOrder},
			{domain.RuleOrderSequence, []string{date, c.OrderCol}, orderSequence},
			{domain.RuleDayOrder, []string{date}, dayOrder},
			{domain.RuleTimeSequence, []string{date, c.StartCol, c.EndCol}, timeSequence},
			{domain.RuleDuration, []string{c.StartCol, c.EndCol}, durationExceeded},
		},
	}
}

// Settings returns the thresholds in use.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Evaluate runs all rules. present lists the raw columns of the table; a
// rule whose columns are not all present is reported as skipped. Rows must
// already carry their decomposed fields.
func (e *Engine) Evaluate(ctx context.Context, rows []domain.DerivedRow, present map[string]bool) ([]domain.RuleOutcome, error) {
	outcomes := make([]domain.RuleOutcome, len(e.defs))
	var active []int
	for i, def := range e.defs {
		outcomes[i] = domain.RuleOutcome{Rule: def.rule, Status: domain.StatusEvaluated}
		if !present[e.panelCol] {
			outcomes[i].Status = domain.StatusSkipped
			outcomes[i].Reason = fmt.Sprintf("column %s absent", e.panelCol)
			continue
		}
		if missing := absent(def.needs, present); len(missing) > 0 {
			outcomes[i].Status = domain.StatusSkipped
			outcomes[i].Reason = fmt.Sprintf("column %s absent", strings.Join(missing, ", "))
			e.logger.DebugContext(ctx, "rule skipped",
				slog.String("rule", string(def.rule)),
				slog.String("reason", outcomes[i].Reason))
			continue
		}
		active = append(active, i)
	}
	if len(active) == 0 {
		return outcomes, nil
	}

	panels := GroupByPanel(rows, e.panelCol)
	results := make([][][]int, len(panels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.settings.Workers, 1))
	for p := range panels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			flagged := make([][]int, len(e.defs))
			for _, i := range active {
				flagged[i] = e.defs[i].check(e, rows, panels[p])
			}
			results[p] = flagged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rule evaluation cancelled: %w", err)
	}

	for _, i := range active {
		seen := make(map[int]struct{})
		for p := range panels {
			for _, pos := range results[p][i] {
				seen[rows[pos].ID] = struct{}{}
			}
		}
		ids := make([]int, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		outcomes[i].Rows = ids
	}

	e.logger.DebugContext(ctx, "rules evaluated",
		slog.Int("panels", len(panels)),
		slog.Int("rules", len(active)))

	return outcomes, nil
}

func absent(needs []string, present map[string]bool) []string {
	var missing []string
	for _, n := range needs {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return missing
}
