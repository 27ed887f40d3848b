package score

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/validate"
)

const richDocument = "# Widget Service Guide\n" +
	"\n" +
	"This guide explains how to install and operate the widget service in a production environment.\n" +
	"\n" +
	"## Installation\n" +
	"\n" +
	"Install the service with the package manager and verify that the binary is available on your path before continuing.\n" +
	"\n" +
	"```bash\n" +
	"go install example.com/widget/cmd/widgetctl@latest\n" +
	"```\n" +
	"\n" +
	"See the [configuration reference](config.md) for every available option and its default value.\n" +
	"\n" +
	"## Configuration\n" +
	"\n" +
	"The service reads a YAML file at startup and merges environment overrides on top of the file values.\n" +
	"\n" +
	"```yaml\n" +
	"server:\n" +
	"  port: 8080\n" +
	"```\n" +
	"\n" +
	"- Set the listening port.\n" +
	"- Choose a storage backend.\n" +
	"\n" +
	"Consult the [operations handbook](operations.md) and the [deployment checklist](deploy.md) for production settings.\n" +
	"\n" +
	"## Conclusion\n" +
	"\n" +
	"You now have a running widget service with a reviewed configuration and a clear path to production operations.\n"

func evaluate(text string) model.AggregateResult {
	ev := validate.Collect(context.Background(), validate.Input{Content: text})
	return Evaluate(text, ev)
}

func category(t *testing.T, agg model.AggregateResult, c model.Category) model.CategoryScore {
	t.Helper()
	for _, cs := range agg.Categories {
		if cs.Category == c {
			return cs
		}
	}
	t.Fatalf("Expected category %s in result", c)
	return model.CategoryScore{}
}

func TestWeights_SumToOne(t *testing.T) {
	// the float sum of these weights is 0.9999999999999999
	sum := 0.0
	for _, w := range Weights() {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Expected weights to sum to 1.0, got %v", sum)
	}
	if len(Weights()) != len(model.Categories()) {
		t.Errorf("Expected a weight for each of the %d categories", len(model.Categories()))
	}
}

func TestEvaluate_ScoresInRange(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t",
		"# Title\n\nShort.",
		richDocument,
		strings.Repeat("TODO FIXME XXX TBD ... ", 50),
		strings.Repeat("#bad\n[[[[[\n```\n", 20),
		strings.Repeat("WORD ", 300) + ".",
		"no headers at all, just one long line of text without any punctuation",
	}

	for i, input := range inputs {
		agg := evaluate(input)
		if agg.Overall < 0 || agg.Overall > 100 {
			t.Errorf("Input %d: expected overall in [0,100], got %v", i, agg.Overall)
		}
		if len(agg.Categories) != 6 {
			t.Errorf("Input %d: expected 6 categories, got %d", i, len(agg.Categories))
		}
		for _, cs := range agg.Categories {
			if cs.Score < 0 || cs.Score > 100 {
				t.Errorf("Input %d: expected %s in [0,100], got %v", i, cs.Category, cs.Score)
			}
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	first := evaluate(richDocument)
	second := evaluate(richDocument)

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical results for identical content")
	}
}

func TestEvaluate_Empty(t *testing.T) {
	agg := evaluate("")

	if agg.Overall != 0 || !agg.Empty {
		t.Errorf("Expected empty zero-quality result, got overall=%v empty=%v", agg.Overall, agg.Empty)
	}
	for _, cs := range agg.Categories {
		if cs.Score != 0 {
			t.Errorf("Expected %s to score 0, got %v", cs.Category, cs.Score)
		}
		if len(cs.Issues) != 1 {
			t.Errorf("Expected exactly one issue for %s, got %v", cs.Category, cs.Issues)
		}
	}
	if got := category(t, agg, model.CategoryStructure).Issues[0]; got != "Content is empty" {
		t.Errorf("Expected structure issue 'Content is empty', got %q", got)
	}
	if got := category(t, agg, model.CategoryReadability).Issues[0]; got != "Could not read content" {
		t.Errorf("Expected placeholder issue, got %q", got)
	}
}

func TestEvaluate_Unparsable(t *testing.T) {
	agg := evaluate("# Title\n\xff\xfe")

	if agg.Overall != 0 || !agg.Unparsable {
		t.Errorf("Expected unparsable zero-quality result, got overall=%v", agg.Overall)
	}
}

func TestEvaluate_ShortContent(t *testing.T) {
	agg := evaluate("# Title\n\nShort.")

	if agg.Overall >= 30 {
		t.Errorf("Expected overall well below 30, got %v", agg.Overall)
	}
	if agg.ContentFactor != 0.05 {
		t.Errorf("Expected content factor 0.05 for one prose word, got %v", agg.ContentFactor)
	}
	if agg.Weighted != 78.25 {
		t.Errorf("Expected raw weighted score 78.25, got %v", agg.Weighted)
	}

	structure := category(t, agg, model.CategoryStructure)
	if structure.Score != 65 {
		t.Errorf("Expected structure 65 (one header, very short), got %v", structure.Score)
	}
}

func TestEvaluateSection_NoThinContentScaling(t *testing.T) {
	text := "## Configure\n\nEdit the file and restart the service.\n\n```yaml\nport: 8080\n```"

	section := EvaluateSection(text, model.Evidence{})
	if section.Overall != 85 || section.Weighted != 85 || section.ContentFactor != 1 {
		t.Errorf("Expected unscaled section score 85, got overall=%v weighted=%v factor=%v",
			section.Overall, section.Weighted, section.ContentFactor)
	}

	whole := Evaluate(text, model.Evidence{})
	if whole.Overall != 29.75 {
		t.Errorf("Expected whole-document scaling to 29.75, got %v", whole.Overall)
	}

	if empty := EvaluateSection("  \n", model.Evidence{}); !empty.Empty || empty.Overall != 0 {
		t.Errorf("Expected empty zero-quality result, got %+v", empty)
	}
}

func TestEvaluate_RichDocument(t *testing.T) {
	agg := evaluate(richDocument)

	if agg.Overall < 80 {
		t.Errorf("Expected overall >= 80, got %v", agg.Overall)
	}
	if agg.ContentFactor != 1 {
		t.Errorf("Expected no thin-content scaling, got %v", agg.ContentFactor)
	}

	want := map[model.Category]float64{
		model.CategoryStructure:       100,
		model.CategorySyntax:          100,
		model.CategoryCodeExamples:    90,
		model.CategoryCrossReferences: 80,
		model.CategoryCompleteness:    100,
		model.CategoryReadability:     100,
	}
	for c, score := range want {
		if got := category(t, agg, c).Score; got != score {
			t.Errorf("Expected %s = %v, got %v (issues: %v)", c, score, got, category(t, agg, c).Issues)
		}
	}
	if agg.Overall != 96.5 {
		t.Errorf("Expected overall 96.5, got %v", agg.Overall)
	}
}

func TestSyntax_OddFenceCount(t *testing.T) {
	text := "# Title\n\nSome intro text for the example.\n\n```go\nfmt.Println(1)\n"
	ev := validate.Collect(context.Background(), validate.Input{Content: text})

	syntax := Syntax(extract.Parse(text), ev)
	if syntax.Score != 100-15 {
		t.Errorf("Expected syntax to drop by exactly 15, got %v", syntax.Score)
	}
	if ev.CountErrors(model.KindUnclosedCodeBlock) != 1 {
		t.Errorf("Expected an unclosed code block error, got %v", ev.ErrorMessages())
	}
}

func TestSyntax_ErrorsAndEmptyLinks(t *testing.T) {
	text := "# Title\n\n#Broken one\n\n#Broken two\n\nA [dangling]() link.\n"
	ev := validate.Collect(context.Background(), validate.Input{Content: text})

	syntax := Syntax(extract.Parse(text), ev)
	// two syntax-class errors and one empty link
	if syntax.Score != 100-40-10 {
		t.Errorf("Expected 50, got %v (issues: %v)", syntax.Score, syntax.Issues)
	}
	if syntax.Metrics["syntax_errors"] != 2 {
		t.Errorf("Expected 2 syntax errors in metrics, got %v", syntax.Metrics["syntax_errors"])
	}
}

func TestCompleteness_Placeholders(t *testing.T) {
	text := "# Guide\n\n" +
		"This paragraph explains the installation steps in enough detail. TODO\n\n" +
		"This paragraph explains configuration options in enough detail. TODO TODO\n\n" +
		"This paragraph explains deployment in enough detail for readers. TODO TODO TODO\n\n" +
		"## Summary\n\nDone.\n"

	cs := Completeness(extract.Parse(text), model.Evidence{})
	if cs.Score != 100-90 {
		t.Errorf("Expected completeness to drop by 90, got %v (issues: %v)", cs.Score, cs.Issues)
	}
	if len(cs.Issues) == 0 || cs.Issues[0] != "6 placeholder items found" {
		t.Errorf("Expected '6 placeholder items found', got %v", cs.Issues)
	}

	clamped := Completeness(extract.Parse(strings.Repeat("TODO ", 10)), model.Evidence{})
	if clamped.Score != 0 {
		t.Errorf("Expected completeness clamped at 0, got %v", clamped.Score)
	}
}

func TestCodeExamples(t *testing.T) {
	tests := []struct {
		text string
		want float64
		desc string
	}{
		{"No code here.", 60, "no blocks"},
		{"```go\nx := 1\n```", 80, "one tagged block"},
		{"```\nx\n```\n```go\ny\n```", 80, "untagged block with bonus"},
		{"```go\n```\n```go\ny\n```", 65, "empty block without bonus"},
		{"```go\nx\n```\n```py\ny\n```", 90, "two tagged blocks"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cs := CodeExamples(extract.Parse(tt.text), model.Evidence{})
			if cs.Score != tt.want {
				t.Errorf("Expected %v, got %v (issues: %v)", tt.want, cs.Score, cs.Issues)
			}
		})
	}
}

func TestCodeExamples_SyntaxErrorMetric(t *testing.T) {
	text := "```go\nx := := 1\n```\n```json\n{}\n```"
	ev := validate.Collect(context.Background(), validate.Input{Content: text})

	cs := CodeExamples(extract.Parse(text), ev)
	if cs.Metrics["syntax_errors"] != 1 {
		t.Errorf("Expected 1 code syntax error in metrics, got %v", cs.Metrics["syntax_errors"])
	}
	if cs.Score != 90 {
		t.Errorf("Expected code syntax errors not to change the category score, got %v", cs.Score)
	}
}

func TestCrossReferences(t *testing.T) {
	tests := []struct {
		text string
		want float64
		desc string
	}{
		{"No links.", 70, "no links"},
		{"[guide](guide.md)", 80, "internal only"},
		{"[guide](guide.md) and [site](https://example.com)", 90, "internal and external"},
		{"Click [here](guide.md) or [Click Here](https://example.com)", 80, "non-descriptive text"},
		{"[linked list](https://example.com/ll)", 80, "literal list is not generalized"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cs := CrossReferences(extract.Parse(tt.text), model.Evidence{})
			if cs.Score != tt.want {
				t.Errorf("Expected %v, got %v (issues: %v)", tt.want, cs.Score, cs.Issues)
			}
		})
	}
}

func TestReadability(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 30)) + "."
	text := long + "\n\nThe API uses HTTP JSON REST RPC SDK calls.\n"

	cs := Readability(extract.Parse(text), model.Evidence{})
	// one long sentence, six acronyms
	if cs.Score != 100-5-5 {
		t.Errorf("Expected 90, got %v (issues: %v)", cs.Score, cs.Issues)
	}

	paragraph := strings.Repeat("short words here. ", 40)
	cs = Readability(extract.Parse(paragraph), model.Evidence{})
	if cs.Score != 97 {
		t.Errorf("Expected one long-paragraph deduction, got %v", cs.Score)
	}
}

func TestStructure(t *testing.T) {
	lines := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		lines = append(lines, "plain line of text")
	}
	cs := Structure(extract.Parse(strings.Join(lines, "\n")), model.Evidence{})
	// no headers, no intro sentence, no lists
	if cs.Score != 100-30-15-10 {
		t.Errorf("Expected 45, got %v (issues: %v)", cs.Score, cs.Issues)
	}
	if cs.Metrics["headers"] != 0 || cs.Metrics["non_blank_lines"] != 12 {
		t.Errorf("Unexpected metrics %v", cs.Metrics)
	}
}
