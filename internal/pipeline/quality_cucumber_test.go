package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/ppiankov/docgate/internal/model"
)

// TestQualityScenarios runs the quality gate feature scenarios.
func TestQualityScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "quality",
		ScenarioInitializer: InitializeQualityScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "features", "quality.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeQualityScenario wires steps for quality scenarios.
func InitializeQualityScenario(ctx *godog.ScenarioContext) {
	state := &qualityScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, state.reset()
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		state.cleanup()
		return ctx, nil
	})

	ctx.Step(`^a document:$`, state.givenDocument)
	ctx.Step(`^a project with the files "([^"]+)"$`, state.givenProject)
	ctx.Step(`^I validate it progressively$`, state.whenValidateProgressive)
	ctx.Step(`^I validate it partially$`, state.whenValidatePartial)
	ctx.Step(`^I validate it with a minimum score of (\d+)$`, state.whenValidate)
	ctx.Step(`^the overall score is below (\d+)$`, state.thenScoreBelow)
	ctx.Step(`^the overall score is at least (\d+)$`, state.thenScoreAtLeast)
	ctx.Step(`^the final tier is "([^"]+)"$`, state.thenFinalTier)
	ctx.Step(`^the outcome is valid$`, state.thenOutcomeValid)
	ctx.Step(`^the content contains "([^"]+)"$`, state.thenContentContains)
	ctx.Step(`^the content does not contain "([^"]+)"$`, state.thenContentLacks)
	ctx.Step(`^(\d+) sections are reported with (\d+) passed and (\d+) failed$`, state.thenSectionCounts)
	ctx.Step(`^a partial save was performed$`, state.thenPartialSave)
	ctx.Step(`^the "([^"]+)" score is (\d+(?:\.\d+)?)$`, state.thenCategoryScore)
	ctx.Step(`^the "([^"]+)" issues include "([^"]+)"$`, state.thenCategoryIssue)
	ctx.Step(`^an error contains "([^"]+)"$`, state.thenErrorContains)
	ctx.Step(`^the result is not valid$`, state.thenResultInvalid)
}

type qualityScenarioState struct {
	pipeline *Pipeline
	root     string
	document string

	outcome  model.TieredOutcome
	assembly model.PartialAssembly
	result   model.DetailedValidationResult
	content  string
}

// reset clears scenario state.
func (s *qualityScenarioState) reset() error {
	p, err := NewPipeline(model.DefaultConfig(), nil)
	if err != nil {
		return err
	}
	*s = qualityScenarioState{pipeline: p}
	return nil
}

// cleanup removes the scenario project, if any.
func (s *qualityScenarioState) cleanup() {
	if s.root != "" {
		_ = os.RemoveAll(s.root)
	}
}

func (s *qualityScenarioState) filePath() string {
	if s.root == "" {
		return "doc.md"
	}
	return filepath.Join(s.root, "README.md")
}

// givenDocument stores the document under test.
func (s *qualityScenarioState) givenDocument(doc *godog.DocString) error {
	s.document = doc.Content
	return nil
}

// givenProject creates a project root holding the named files.
func (s *qualityScenarioState) givenProject(files string) error {
	root, err := os.MkdirTemp("", "docgate-feature-")
	if err != nil {
		return err
	}
	s.root = root
	for _, name := range strings.Split(files, ",") {
		name = strings.TrimSpace(name)
		if err := os.WriteFile(filepath.Join(root, name), []byte("# "+name+"\n"), 0644); err != nil {
			return err
		}
	}
	return nil
}

// whenValidateProgressive runs progressive validation.
func (s *qualityScenarioState) whenValidateProgressive() error {
	s.outcome = s.pipeline.ValidateProgressive(context.Background(), s.filePath(), s.document, s.root)
	s.content = s.outcome.Content
	return nil
}

// whenValidatePartial runs partial validation.
func (s *qualityScenarioState) whenValidatePartial() error {
	s.assembly = s.pipeline.ValidatePartial(context.Background(), s.filePath(), s.document, s.root, PartialOptions{})
	s.content = s.assembly.Content
	return nil
}

// whenValidate runs flat validation.
func (s *qualityScenarioState) whenValidate(minScore int) error {
	s.result = s.pipeline.Validate(context.Background(), s.filePath(), s.document, s.root, float64(minScore))
	return nil
}

func (s *qualityScenarioState) thenScoreBelow(limit int) error {
	if got := s.outcome.Score(); got >= float64(limit) {
		return fmt.Errorf("expected score below %d, got %v", limit, got)
	}
	return nil
}

func (s *qualityScenarioState) thenScoreAtLeast(limit int) error {
	if got := s.outcome.Score(); got < float64(limit) {
		return fmt.Errorf("expected score of at least %d, got %v", limit, got)
	}
	return nil
}

func (s *qualityScenarioState) thenFinalTier(name string) error {
	if got := s.outcome.FinalTier.String(); got != name {
		return fmt.Errorf("expected tier %s, got %s (warnings: %v)", name, got, s.outcome.Warnings)
	}
	return nil
}

func (s *qualityScenarioState) thenOutcomeValid() error {
	if !s.outcome.IsValid {
		return fmt.Errorf("expected a valid outcome")
	}
	return nil
}

func (s *qualityScenarioState) thenContentContains(text string) error {
	if !strings.Contains(s.content, text) {
		return fmt.Errorf("expected content to contain %q, got:\n%s", text, s.content)
	}
	return nil
}

func (s *qualityScenarioState) thenContentLacks(text string) error {
	if strings.Contains(s.content, text) {
		return fmt.Errorf("expected content without %q, got:\n%s", text, s.content)
	}
	return nil
}

func (s *qualityScenarioState) thenSectionCounts(total, passed, failed int) error {
	a := s.assembly
	if a.Total != total || a.Passed != passed || a.Failed != failed {
		return fmt.Errorf("expected total=%d passed=%d failed=%d, got total=%d passed=%d failed=%d",
			total, passed, failed, a.Total, a.Passed, a.Failed)
	}
	return nil
}

func (s *qualityScenarioState) thenPartialSave() error {
	if !s.assembly.PartialSave || !s.assembly.Split {
		return fmt.Errorf("expected a split with a partial save, got split=%v partial=%v", s.assembly.Split, s.assembly.PartialSave)
	}
	return nil
}

func (s *qualityScenarioState) category(name string) (model.CategoryScore, error) {
	for _, cs := range s.result.Aggregate.Categories {
		if cs.Category == model.Category(name) {
			return cs, nil
		}
	}
	return model.CategoryScore{}, fmt.Errorf("no %s category in result", name)
}

func (s *qualityScenarioState) thenCategoryScore(name, want string) error {
	cs, err := s.category(name)
	if err != nil {
		return err
	}
	score, err := strconv.ParseFloat(want, 64)
	if err != nil {
		return err
	}
	if cs.Score != score {
		return fmt.Errorf("expected %s score %v, got %v (issues: %v)", name, score, cs.Score, cs.Issues)
	}
	return nil
}

func (s *qualityScenarioState) thenCategoryIssue(name, issue string) error {
	cs, err := s.category(name)
	if err != nil {
		return err
	}
	for _, i := range cs.Issues {
		if i == issue {
			return nil
		}
	}
	return fmt.Errorf("expected %s issue %q, got %v", name, issue, cs.Issues)
}

func (s *qualityScenarioState) thenErrorContains(text string) error {
	for _, e := range s.result.Errors {
		if strings.Contains(e, text) {
			return nil
		}
	}
	return fmt.Errorf("expected an error containing %q, got %v", text, s.result.Errors)
}

func (s *qualityScenarioState) thenResultInvalid() error {
	if s.result.IsValid {
		return fmt.Errorf("expected an invalid result")
	}
	return nil
}
