package model

import (
	"errors"
	"fmt"
)

// ErrInvalidThresholds is returned when tier thresholds are not strictly descending
var ErrInvalidThresholds = errors.New("invalid tier thresholds")

// Tier is a progressive quality tier
type Tier int

const (
	TierHigh       Tier = iota // Meets the high threshold
	TierMedium                 // Meets the medium threshold
	TierBasic                  // Meets the basic threshold
	TierFallback               // Met nothing, saved with warnings
	TierBelowBasic             // Display-only tier for sections
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "High"
	case TierMedium:
		return "Medium"
	case TierBasic:
		return "Basic"
	case TierFallback:
		return "Fallback"
	case TierBelowBasic:
		return "BelowBasic"
	default:
		return "Unknown"
	}
}

// Icon returns the marker used in content notices
func (t Tier) Icon() string {
	switch t {
	case TierHigh:
		return "✅"
	case TierMedium:
		return "🟡"
	case TierBasic:
		return "🟠"
	case TierFallback:
		return "🔴"
	default:
		return "❌"
	}
}

// MarshalText encodes the tier by name
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name
func (t *Tier) UnmarshalText(text []byte) error {
	for _, candidate := range []Tier{TierHigh, TierMedium, TierBasic, TierFallback, TierBelowBasic} {
		if candidate.String() == string(text) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", text)
}

// Thresholds are the acceptance bars for the three real tiers
type Thresholds struct {
	High   float64 `json:"high" yaml:"high" mapstructure:"high"`
	Medium float64 `json:"medium" yaml:"medium" mapstructure:"medium"`
	Basic  float64 `json:"basic" yaml:"basic" mapstructure:"basic"`
}

// DefaultThresholds returns the standard tier thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{High: 85, Medium: 70, Basic: 50}
}

// Validate checks 100 >= High > Medium > Basic >= 0
func (t Thresholds) Validate() error {
	if t.High > 100 || !(t.High > t.Medium) || !(t.Medium > t.Basic) || t.Basic < 0 {
		return fmt.Errorf("%w: need 100 >= high > medium > basic >= 0, got high=%.1f medium=%.1f basic=%.1f",
			ErrInvalidThresholds, t.High, t.Medium, t.Basic)
	}
	return nil
}

// For returns the threshold of a real tier
func (t Thresholds) For(tier Tier) float64 {
	switch tier {
	case TierHigh:
		return t.High
	case TierMedium:
		return t.Medium
	default:
		return t.Basic
	}
}

// DisplayTier classifies a score against all three thresholds
func (t Thresholds) DisplayTier(score float64) Tier {
	switch {
	case score >= t.High:
		return TierHigh
	case score >= t.Medium:
		return TierMedium
	case score >= t.Basic:
		return TierBasic
	default:
		return TierBelowBasic
	}
}

// ProgressiveAttempt records one tier evaluation
type ProgressiveAttempt struct {
	Tier           Tier     `json:"tier"`
	Threshold      float64  `json:"threshold"`
	Score          float64  `json:"score"`
	Passed         bool     `json:"passed"`
	FailureReasons []string `json:"failure_reasons,omitempty"`
}

// TieredOutcome is the result of progressive validation.
// It is always valid: the worst case is Fallback with warnings.
type TieredOutcome struct {
	FinalTier Tier                 `json:"final_tier"`
	Attempts  []ProgressiveAttempt `json:"attempts"`
	Content   string               `json:"content"`
	Warnings  []string             `json:"warnings,omitempty"`
	Aggregate AggregateResult      `json:"aggregate"`
	IsValid   bool                 `json:"is_valid"`
}

// Score returns the overall score the outcome was decided on
func (o TieredOutcome) Score() float64 {
	return o.Aggregate.Overall
}

// Accepted reports whether a real tier accepted the content
func (o TieredOutcome) Accepted() bool {
	return o.FinalTier != TierFallback
}
