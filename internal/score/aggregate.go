package score

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
)

// thinContentWords is the prose word count below which the overall score is scaled down
const thinContentWords = 20

// Weights returns the fixed category weights; they sum to 1.0
func Weights() model.Weights {
	return model.Weights{
		model.CategoryStructure:       0.25,
		model.CategorySyntax:          0.20,
		model.CategoryCodeExamples:    0.15,
		model.CategoryCrossReferences: 0.10,
		model.CategoryCompleteness:    0.20,
		model.CategoryReadability:     0.10,
	}
}

// Categories runs all six scorers in reporting order
func Categories(doc *extract.Document, ev model.Evidence) []model.CategoryScore {
	return []model.CategoryScore{
		Structure(doc, ev),
		Syntax(doc, ev),
		CodeExamples(doc, ev),
		CrossReferences(doc, ev),
		Completeness(doc, ev),
		Readability(doc, ev),
	}
}

// Aggregate combines category scores with the fixed weights
func Aggregate(categories []model.CategoryScore) model.AggregateResult {
	weights := Weights()

	sum := 0.0
	for _, c := range categories {
		sum += c.Score * weights[c.Category]
	}
	weighted := round2(clamp(sum))

	return model.AggregateResult{
		Overall:       weighted,
		Weighted:      weighted,
		ContentFactor: 1,
		Categories:    categories,
		Weights:       weights,
	}
}

// Empty is the zero-quality result for empty or whitespace-only content
func Empty() model.AggregateResult {
	agg := zeroQuality("Content is empty", "Provide documentation content")
	agg.Empty = true
	return agg
}

// Unparsable is the zero-quality result for content that cannot be scanned
func Unparsable() model.AggregateResult {
	agg := zeroQuality("Content could not be parsed (invalid UTF-8)", "Save the document as UTF-8 text")
	agg.Unparsable = true
	return agg
}

func zeroQuality(issue, suggestion string) model.AggregateResult {
	categories := make([]model.CategoryScore, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		cs := model.CategoryScore{
			Category:    c,
			Issues:      []string{"Could not read content"},
			Suggestions: []string{suggestion},
			Metrics:     map[string]float64{},
		}
		if c == model.CategoryStructure {
			cs.Issues = []string{issue}
		}
		categories = append(categories, cs)
	}
	return model.AggregateResult{
		Categories: categories,
		Weights:    Weights(),
	}
}

// Evaluate scores a whole document against the validators' evidence.
// Documents with fewer than 20 words of prose have their overall score
// scaled by words/20 so that near-empty content cannot pass on baselines
// alone.
func Evaluate(text string, ev model.Evidence) model.AggregateResult {
	agg, doc := weigh(text, ev)
	if doc == nil {
		return agg
	}

	agg.ContentFactor = math.Min(1, float64(doc.ProseWords())/thinContentWords)
	agg.Overall = round2(clamp(agg.Weighted * agg.ContentFactor))
	return agg
}

// EvaluateSection scores one section of a larger document on the plain
// weighted sum. Sections are not scaled for thin content.
func EvaluateSection(text string, ev model.Evidence) model.AggregateResult {
	agg, _ := weigh(text, ev)
	return agg
}

// weigh returns the unscaled aggregate, and the parsed document unless the
// text short-circuited to a zero-quality result
func weigh(text string, ev model.Evidence) (model.AggregateResult, *extract.Document) {
	if !utf8.ValidString(text) {
		return Unparsable(), nil
	}
	if strings.TrimSpace(text) == "" {
		return Empty(), nil
	}

	doc := extract.Parse(text)
	return Aggregate(Categories(doc, ev)), doc
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
