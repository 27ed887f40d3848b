package partial

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/score"
	"github.com/ppiankov/docgate/internal/tier"
	"github.com/ppiankov/docgate/internal/validate"
	"github.com/ppiankov/docgate/internal/worker"
)

// maxNamedExclusions bounds the section names listed in the partial notice
const maxNamedExclusions = 3

// Assembler validates sections independently and keeps the ones that pass
type Assembler struct {
	engine         *tier.Engine
	thresholds     model.Thresholds
	sectionNotices bool
	workers        int
}

// NewAssembler creates an assembler. Sections are judged against the Basic
// threshold; workers bounds how many are validated at once.
func NewAssembler(thresholds model.Thresholds, sectionNotices bool, workers int) (*Assembler, error) {
	engine, err := tier.New(thresholds, false)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		engine:         engine,
		thresholds:     thresholds,
		sectionNotices: sectionNotices,
		workers:        workers,
	}, nil
}

// Assemble splits text, validates every section with base as the template
// input (its Content is replaced per section) and builds the trimmed document.
func (a *Assembler) Assemble(ctx context.Context, text string, base validate.Input) model.PartialAssembly {
	sections := Split(text)
	outcomes := a.ValidateSections(ctx, sections, base)

	result := model.PartialAssembly{
		Total:    len(outcomes),
		Split:    true,
		Sections: outcomes,
	}

	var passedScores float64
	for _, o := range outcomes {
		if o.Passed {
			result.Passed++
			passedScores += o.Score()
		} else {
			result.Failed++
		}
	}
	result.OverallSuccess = result.Passed > 0
	result.PartialSave = result.Passed > 0 && result.Failed > 0
	if result.Passed > 0 {
		result.MeanScore = math.Round(passedScores/float64(result.Passed)*100) / 100
	}

	result.Content = a.render(extract.SplitLines(text), outcomes)
	return result
}

// ValidateSections scores each section on the worker pool. Outcomes keep
// the section order.
func (a *Assembler) ValidateSections(ctx context.Context, sections []model.Section, base validate.Input) []model.SectionOutcome {
	jobs := make([]worker.Job, len(sections))
	for i, s := range sections {
		jobs[i] = &sectionJob{section: s, base: base, assembler: a}
	}

	results := worker.NewPool(a.workers).Run(ctx, jobs)

	outcomes := make([]model.SectionOutcome, len(results))
	for i, r := range results {
		outcomes[i] = r.(*sectionResult).outcome
	}
	return outcomes
}

func (a *Assembler) evaluate(ctx context.Context, s model.Section, base validate.Input) model.SectionOutcome {
	in := base
	in.Content = s.Content

	agg := score.EvaluateSection(s.Content, validate.Collect(ctx, in))
	outcome := a.engine.Flat(s.Content, agg, a.thresholds.Basic)

	return model.SectionOutcome{
		Section:     s,
		Outcome:     outcome,
		DisplayTier: a.thresholds.DisplayTier(agg.Overall),
		Passed:      outcome.Accepted(),
	}
}

// render joins the preamble, the partial notice, the passing sections and
// the exclusion trailer
func (a *Assembler) render(lines []string, outcomes []model.SectionOutcome) string {
	var parts []string

	preambleEnd, bodyStart := 0, 0
	if len(outcomes) > 0 {
		preambleEnd, bodyStart = splitPreamble(lines, outcomes[0].Section.PreambleLines)
	}
	if preamble := strings.TrimSpace(strings.Join(lines[:preambleEnd], "\n")); preamble != "" {
		parts = append(parts, preamble)
	}

	var failed []model.SectionOutcome
	for _, o := range outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		parts = append(parts, partialNotice(len(outcomes)-len(failed), failed))
	}

	for i, o := range outcomes {
		if !o.Passed {
			continue
		}
		if a.sectionNotices && o.DisplayTier != model.TierHigh {
			parts = append(parts, sectionNotice(o))
		}
		body := o.Section.Content
		if i == 0 && bodyStart > 0 {
			body = sectionBody(lines, o.Section, bodyStart)
		}
		if body != "" {
			parts = append(parts, body)
		}
	}

	if len(failed) > 0 {
		parts = append(parts, exclusionTrailer(failed, a.thresholds.Basic))
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// splitPreamble finds where the preamble ends within the first section's
// pre-header lines: at the first "---" line, or at the first split header.
// bodyStart is the first line the section body keeps.
func splitPreamble(lines []string, preambleLines int) (preambleEnd, bodyStart int) {
	if preambleLines > len(lines) {
		preambleLines = len(lines)
	}
	for i := 0; i < preambleLines; i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i, i + 1
		}
	}
	return preambleLines, preambleLines
}

// sectionBody is the first section without the lines already emitted as preamble
func sectionBody(lines []string, s model.Section, bodyStart int) string {
	end := s.EndLine
	if end > len(lines) {
		end = len(lines)
	}
	if bodyStart >= end {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[bodyStart:end], "\n"))
}

func partialNotice(passed int, failed []model.SectionOutcome) string {
	names := make([]string, 0, maxNamedExclusions)
	for i, o := range failed {
		if i == maxNamedExclusions {
			names = append(names, "...")
			break
		}
		names = append(names, o.Section.Name)
	}

	return fmt.Sprintf("> ⚠️ **Partial Content Notice:** %d of %d %s passed validation; %d %s excluded (%s). See \"Excluded Sections\" below.",
		passed, passed+len(failed), plural(passed+len(failed), "section", "sections"),
		len(failed), plural(len(failed), "section was", "sections were"),
		strings.Join(names, ", "))
}

func sectionNotice(o model.SectionOutcome) string {
	return fmt.Sprintf("> %s **Section Quality:** %s tier (score %s/100)",
		o.DisplayTier.Icon(), o.DisplayTier, tier.FormatScore(o.Score()))
}

func exclusionTrailer(failed []model.SectionOutcome, basic float64) string {
	var b strings.Builder
	b.WriteString("## Excluded Sections\n\n")
	fmt.Fprintf(&b, "The following sections scored below the minimum threshold (%s) and were excluded:\n\n", tier.FormatScore(basic))
	for i, o := range failed {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- **%s** (score %s/100)", o.Section.Name, tier.FormatScore(o.Score()))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// sectionJob validates one section on the pool
type sectionJob struct {
	section   model.Section
	base      validate.Input
	assembler *Assembler
}

func (j *sectionJob) Execute(ctx context.Context) worker.Result {
	return &sectionResult{outcome: j.assembler.evaluate(ctx, j.section, j.base)}
}

type sectionResult struct {
	outcome model.SectionOutcome
}

func (r *sectionResult) GetError() error {
	return nil
}
