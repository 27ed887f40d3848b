// Package tier decides at which quality tier content is accepted. Content is
// never rejected: when no tier accepts it, it falls back to a saved-with-
// warnings outcome.
package tier

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ppiankov/docgate/internal/model"
)

// maxReasons bounds the failure reasons and actions surfaced per outcome
const maxReasons = 3

// progression is the order tiers are tried in
var progression = []model.Tier{model.TierHigh, model.TierMedium, model.TierBasic}

// Engine walks the tiers from High to Basic against one aggregate score
type Engine struct {
	thresholds model.Thresholds
	annotate   bool
}

// New creates an engine. It returns an error wrapping
// model.ErrInvalidThresholds unless 100 >= high > medium > basic >= 0.
func New(thresholds model.Thresholds, annotate bool) (*Engine, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Engine{thresholds: thresholds, annotate: annotate}, nil
}

// Run evaluates an aggregate computed once by the caller and stops at the
// first tier whose threshold it meets.
func (e *Engine) Run(content string, agg model.AggregateResult) model.TieredOutcome {
	var attempts []model.ProgressiveAttempt

	for _, t := range progression {
		threshold := e.thresholds.For(t)
		attempt := model.ProgressiveAttempt{
			Tier:      t,
			Threshold: threshold,
			Score:     agg.Overall,
			Passed:    agg.Passed(threshold),
		}
		if !attempt.Passed {
			attempt.FailureReasons = FailureReasons(agg)
		}
		attempts = append(attempts, attempt)

		if attempt.Passed {
			return e.accept(content, agg, attempts, t, threshold)
		}
	}

	return e.fallback(content, agg, attempts, e.thresholds.Basic)
}

// Flat is used when progressive tiers are disabled: one attempt at the
// caller's threshold, accepted as Basic or falling back.
func (e *Engine) Flat(content string, agg model.AggregateResult, threshold float64) model.TieredOutcome {
	attempt := model.ProgressiveAttempt{
		Tier:      model.TierBasic,
		Threshold: threshold,
		Score:     agg.Overall,
		Passed:    agg.Passed(threshold),
	}
	if !attempt.Passed {
		attempt.FailureReasons = FailureReasons(agg)
		return e.fallback(content, agg, []model.ProgressiveAttempt{attempt}, threshold)
	}

	return model.TieredOutcome{
		FinalTier: model.TierBasic,
		Attempts:  []model.ProgressiveAttempt{attempt},
		Content:   content,
		Warnings:  []string{},
		Aggregate: agg,
		IsValid:   true,
	}
}

func (e *Engine) accept(content string, agg model.AggregateResult, attempts []model.ProgressiveAttempt, t model.Tier, threshold float64) model.TieredOutcome {
	outcome := model.TieredOutcome{
		FinalTier: t,
		Attempts:  attempts,
		Content:   content,
		Warnings:  []string{},
		Aggregate: agg,
		IsValid:   true,
	}
	if t == model.TierHigh {
		return outcome
	}

	outcome.Warnings = append(outcome.Warnings,
		fmt.Sprintf("Content accepted at %s tier (score %s/100, threshold %s)", t, FormatScore(agg.Overall), FormatScore(threshold)))
	if e.annotate {
		outcome.Content = InsertNotice(content, TierNotice(t, agg.Overall, threshold))
	}
	return outcome
}

func (e *Engine) fallback(content string, agg model.AggregateResult, attempts []model.ProgressiveAttempt, threshold float64) model.TieredOutcome {
	reasons := FailureReasons(agg)
	actions := Actions(agg)

	warnings := []string{
		fmt.Sprintf("Content did not meet any quality tier (score %s/100, basic threshold %s); saved for review",
			FormatScore(agg.Overall), FormatScore(threshold)),
	}
	if agg.ContentFactor < 1 && !agg.Empty && !agg.Unparsable {
		warnings = append(warnings, fmt.Sprintf("Content is too thin to score fully (score scaled by %s)", FormatScore(agg.ContentFactor)))
	}
	warnings = append(warnings, reasons...)

	outcome := model.TieredOutcome{
		FinalTier: model.TierFallback,
		Attempts:  attempts,
		Content:   content,
		Warnings:  warnings,
		Aggregate: agg,
		IsValid:   true,
	}
	if e.annotate {
		outcome.Content = InsertNotice(content, FallbackBlock(agg.Overall, threshold, reasons, actions))
	}
	return outcome
}

// FailureReasons returns up to three "<category> (<score>/100): <issue>"
// lines for categories below 100, lowest score first.
func FailureReasons(agg model.AggregateResult) []string {
	ranked := rankCategories(agg)

	reasons := make([]string, 0, maxReasons)
	for _, cs := range ranked {
		if len(reasons) == maxReasons {
			break
		}
		reason := fmt.Sprintf("%s (%s/100)", cs.Category, FormatScore(cs.Score))
		if len(cs.Issues) > 0 {
			reason += ": " + cs.Issues[0]
		}
		reasons = append(reasons, reason)
	}
	return reasons
}

// Actions returns up to three distinct improvement suggestions, taken from
// the lowest scoring categories first.
func Actions(agg model.AggregateResult) []string {
	seen := make(map[string]bool)
	actions := make([]string, 0, maxReasons)
	for _, cs := range rankCategories(agg) {
		for _, s := range cs.Suggestions {
			if len(actions) == maxReasons {
				return actions
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			actions = append(actions, s)
			break
		}
	}
	return actions
}

// rankCategories orders imperfect categories by ascending score; ties keep
// the fixed category order.
func rankCategories(agg model.AggregateResult) []model.CategoryScore {
	ranked := make([]model.CategoryScore, 0, len(agg.Categories))
	for _, cs := range agg.Categories {
		if cs.Score < 100 {
			ranked = append(ranked, cs)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})
	return ranked
}

// FormatScore renders a score without trailing zeros
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
