package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/tier"
)

// isTerminal is replaced in tests
var isTerminal = func(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}

// Renderer writes reports and terminal summaries
type Renderer struct {
	out        io.Writer
	color      bool
	thresholds model.Thresholds
}

// NewRenderer creates a renderer. Colour is used only on a terminal and
// never when NO_COLOR is set; scores are coloured by the tier they reach.
func NewRenderer(out io.Writer, color bool, thresholds model.Thresholds) *Renderer {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" || !isTerminal(out) {
		color = false
	}
	return &Renderer{out: out, color: color, thresholds: thresholds}
}

// RenderJSON writes v as indented JSON to path
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderResult prints a flat validation summary
func (r *Renderer) RenderResult(res model.DetailedValidationResult) {
	verdict := r.style("PASS", "42")
	if !res.IsValid {
		verdict = r.style("FAIL", "196")
	}

	fmt.Fprintf(r.out, "%s %s  score %s/100 (min %s)\n",
		verdict, r.bold(res.FilePath), r.score(res.Score), tier.FormatScore(res.MinScore))
	r.renderCategories(res.Categories)
	r.renderList("Errors", res.Errors, "196")
	r.renderList("Warnings", res.Warnings, "220")
	r.renderList("Suggestions", res.Suggestions, "244")
}

// RenderOutcome prints a progressive validation summary
func (r *Renderer) RenderOutcome(path string, o model.TieredOutcome) {
	fmt.Fprintf(r.out, "%s %s  %s tier, score %s/100\n",
		o.FinalTier.Icon(), r.bold(path), r.tierName(o.FinalTier), r.score(o.Score()))

	for _, a := range o.Attempts {
		mark := r.style("✗", "196")
		if a.Passed {
			mark = r.style("✓", "42")
		}
		fmt.Fprintf(r.out, "  %s %-8s threshold %s\n", mark, a.Tier, tier.FormatScore(a.Threshold))
	}
	r.renderCategories(o.Aggregate.Categories)
	r.renderList("Warnings", o.Warnings, "220")
}

// RenderPartial prints a partial assembly summary
func (r *Renderer) RenderPartial(path string, a model.PartialAssembly) {
	if !a.Split {
		r.RenderOutcome(path, a.Whole)
		return
	}

	fmt.Fprintf(r.out, "%s %s  %d of %d sections passed (mean %s/100, whole document %s/100)\n",
		model.TierFallback.Icon(), r.bold(path), a.Passed, a.Total,
		r.score(a.MeanScore), tier.FormatScore(a.Whole.Score()))

	for _, s := range a.Sections {
		mark := r.style("✓", "42")
		if !s.Passed {
			mark = r.style("✗", "196")
		}
		fmt.Fprintf(r.out, "  %s %-32s %s/100 %s\n", mark, s.Section.Name, r.score(s.Score()), r.tierName(s.DisplayTier))
	}
}

func (r *Renderer) renderCategories(categories []model.CategoryScore) {
	for _, c := range categories {
		fmt.Fprintf(r.out, "  %-18s %s\n", c.Category, r.score(c.Score))
	}
}

func (r *Renderer) renderList(title string, items []string, color string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(r.out, "%s:\n", r.style(title, color))
	for _, item := range items {
		fmt.Fprintf(r.out, "  - %s\n", item)
	}
}

func (r *Renderer) score(v float64) string {
	color := "196"
	switch r.thresholds.DisplayTier(v) {
	case model.TierHigh:
		color = "42"
	case model.TierMedium:
		color = "220"
	case model.TierBasic:
		color = "208"
	}
	return r.style(tier.FormatScore(v), color)
}

func (r *Renderer) tierName(t model.Tier) string {
	name := t.String()
	if t == model.TierFallback || t == model.TierBelowBasic {
		return r.style(name, "196")
	}
	return name
}

func (r *Renderer) style(text, color string) string {
	if !r.color {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

func (r *Renderer) bold(text string) string {
	if !r.color {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Render(strings.TrimSpace(text))
}
