package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/partial"
	"github.com/ppiankov/docgate/internal/score"
	"github.com/ppiankov/docgate/internal/snapshot"
	"github.com/ppiankov/docgate/internal/tier"
	"github.com/ppiankov/docgate/internal/validate"
	"github.com/ppiankov/docgate/internal/worker"
)

// Pipeline orchestrates validation, tiering and partial assembly
type Pipeline struct {
	snapshots *snapshot.Provider
	tiers     *tier.Engine
	assembler *partial.Assembler
	config    *model.Config
}

// PartialOptions tune ValidatePartial
type PartialOptions struct {
	ForceSplit bool // Split even when the whole document is accepted
}

// NewPipeline creates a pipeline with the given configuration. A nil
// provider builds snapshots without caching. Invalid tier thresholds are a
// configuration error.
func NewPipeline(cfg *model.Config, snapshots *snapshot.Provider) (*Pipeline, error) {
	thresholds := cfg.Quality.Progressive.Thresholds

	tiers, err := tier.New(thresholds, cfg.Quality.Annotate)
	if err != nil {
		return nil, fmt.Errorf("tier engine: %w", err)
	}

	assembler, err := partial.NewAssembler(thresholds, cfg.Quality.SectionNotices, cfg.Concurrency.SectionWorkers)
	if err != nil {
		return nil, fmt.Errorf("assembler: %w", err)
	}

	if snapshots == nil {
		snapshots = snapshot.NewProvider(nil, 0, snapshot.Options{MaxFiles: cfg.Snapshot.MaxFiles})
	}

	return &Pipeline{
		snapshots: snapshots,
		tiers:     tiers,
		assembler: assembler,
		config:    cfg,
	}, nil
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() *model.Config {
	return p.config
}

// Validate scores content once and reports it against minScore. The result
// is valid when the overall score meets minScore and no validator raised an
// error.
func (p *Pipeline) Validate(ctx context.Context, filePath, content, projectRoot string, minScore float64) model.DetailedValidationResult {
	ev := validate.Collect(ctx, p.input(filePath, content, projectRoot))
	agg := score.Evaluate(content, ev)

	return detailed(filePath, minScore, agg, ev)
}

// ValidateProgressive accepts content at the highest tier it meets, or
// saves it with warnings. With progressive tiers disabled it makes a single
// attempt at quality.min_score.
func (p *Pipeline) ValidateProgressive(ctx context.Context, filePath, content, projectRoot string) model.TieredOutcome {
	return p.progressive(ctx, p.input(filePath, content, projectRoot))
}

// ValidatePartial splits content into sections when the whole document
// lands in Fallback (or opts.ForceSplit is set) and keeps the sections that
// pass on their own. An accepted document comes back as one passed unit.
func (p *Pipeline) ValidatePartial(ctx context.Context, filePath, content, projectRoot string, opts PartialOptions) model.PartialAssembly {
	in := p.input(filePath, content, projectRoot)
	whole := p.progressive(ctx, in)

	if whole.Accepted() && !opts.ForceSplit {
		return model.PartialAssembly{
			Total:          1,
			Passed:         1,
			Content:        whole.Content,
			OverallSuccess: true,
			MeanScore:      whole.Score(),
			Whole:          whole,
		}
	}

	result := p.assembler.Assemble(ctx, content, in)
	result.Whole = whole
	return result
}

// ValidateFile reads a file and validates it at quality.min_score, using
// the nearest directory holding a project marker as the project root
func (p *Pipeline) ValidateFile(ctx context.Context, path string) (*model.DetailedValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result := p.Validate(ctx, path, string(data), FindProjectRoot(path), p.config.Quality.MinScore)
	return &result, nil
}

// ValidateFiles validates many files on the batch worker pool
func (p *Pipeline) ValidateFiles(ctx context.Context, paths []string) []*worker.FileResult {
	return worker.NewBatchProcessor(p, p.config.Concurrency.BatchWorkers).ProcessFiles(ctx, paths)
}

func (p *Pipeline) progressive(ctx context.Context, in validate.Input) model.TieredOutcome {
	ev := validate.Collect(ctx, in)
	agg := score.Evaluate(in.Content, ev)

	if !p.config.Quality.Progressive.Enabled {
		return p.tiers.Flat(in.Content, agg, p.config.Quality.MinScore)
	}
	return p.tiers.Run(in.Content, agg)
}

// input fetches the project snapshot once per request. A snapshot that
// cannot be built leaves reference checks off.
func (p *Pipeline) input(filePath, content, projectRoot string) validate.Input {
	in := validate.Input{
		FilePath:     filePath,
		Content:      content,
		Root:         projectRoot,
		ProbeWorkers: p.config.Concurrency.ProbeWorkers,
	}
	if !p.config.Snapshot.Enabled || projectRoot == "" {
		return in
	}

	snap, err := p.snapshots.Get(projectRoot)
	if err != nil {
		if p.config.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Warning: project snapshot unavailable for %s: %v\n", projectRoot, err)
		}
		return in
	}
	in.Snapshot = snap
	return in
}

func detailed(filePath string, minScore float64, agg model.AggregateResult, ev model.Evidence) model.DetailedValidationResult {
	errs := ev.ErrorMessages()

	return model.DetailedValidationResult{
		FilePath:    filePath,
		Score:       agg.Overall,
		MinScore:    minScore,
		IsValid:     agg.Passed(minScore) && len(errs) == 0,
		Categories:  agg.Categories,
		Errors:      errs,
		Warnings:    ev.WarningMessages(),
		Suggestions: suggestions(agg, ev),
		Evidence:    ev,
		Aggregate:   agg,
	}
}

// evidenceSuggestions apply when validators raised a finding of the kind
var evidenceSuggestions = []struct {
	kinds      []model.FindingKind
	suggestion string
}{
	{[]model.FindingKind{model.KindCodeSyntax}, "Make embedded code examples parse"},
	{[]model.FindingKind{model.KindUnresolvedImport, model.KindUnresolvedRef}, "Check code examples against the project's current modules and API"},
	{[]model.FindingKind{model.KindMissingReference, model.KindMissingAnchor}, "Point links at files and headings that exist"},
}

// suggestions collects category suggestions in category order, then those
// raised by validator findings, deduplicated
func suggestions(agg model.AggregateResult, ev model.Evidence) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, c := range agg.Categories {
		for _, s := range c.Suggestions {
			add(s)
		}
	}
	for _, es := range evidenceSuggestions {
		for _, kind := range es.kinds {
			if ev.HasKind(kind) {
				add(es.suggestion)
				break
			}
		}
	}
	return out
}

// projectMarkers identify a project root directory
var projectMarkers = []string{".git", "go.mod", "package.json", "pyproject.toml", "Cargo.toml"}

// FindProjectRoot walks up from path to the nearest directory containing a
// project marker. Without one it returns the file's own directory.
func FindProjectRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	start := filepath.Dir(abs)

	for dir := start; ; {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
