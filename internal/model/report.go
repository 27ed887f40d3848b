package model

// Category names one of the six fixed quality categories
type Category string

const (
	CategoryStructure       Category = "structure"
	CategorySyntax          Category = "syntax"
	CategoryCodeExamples    Category = "code_examples"
	CategoryCrossReferences Category = "cross_references"
	CategoryCompleteness    Category = "completeness"
	CategoryReadability     Category = "readability"
)

// Categories returns the six categories in their fixed reporting order
func Categories() []Category {
	return []Category{
		CategoryStructure,
		CategorySyntax,
		CategoryCodeExamples,
		CategoryCrossReferences,
		CategoryCompleteness,
		CategoryReadability,
	}
}

// CategoryScore is the result of one category scorer
type CategoryScore struct {
	Category    Category           `json:"category"`
	Score       float64            `json:"score"`             // 0-100
	Issues      []string           `json:"issues"`            // What was penalized
	Suggestions []string           `json:"suggestions"`       // How to improve
	Metrics     map[string]float64 `json:"metrics,omitempty"` // Transparent scoring inputs
}

// Weights maps each category to its share of the overall score
type Weights map[Category]float64

// AggregateResult is the weighted combination of the six category scores
type AggregateResult struct {
	Overall       float64         `json:"overall"`        // Weighted × ContentFactor, 0-100
	Weighted      float64         `json:"weighted"`       // Raw weighted sum, 0-100
	ContentFactor float64         `json:"content_factor"` // Thin-content multiplier, 0-1
	Categories    []CategoryScore `json:"categories"`     // In Categories() order
	Weights       Weights         `json:"weights"`
	Empty         bool            `json:"empty,omitempty"`
	Unparsable    bool            `json:"unparsable,omitempty"`
}

// Passed reports whether the overall score meets the threshold
func (a AggregateResult) Passed(threshold float64) bool {
	return a.Overall >= threshold
}

// DetailedValidationResult is the outcome of a flat validation call
type DetailedValidationResult struct {
	FilePath    string          `json:"file_path"`
	Score       float64         `json:"score"`
	MinScore    float64         `json:"min_score"`
	IsValid     bool            `json:"is_valid"`
	Categories  []CategoryScore `json:"categories"`
	Errors      []string        `json:"errors"`
	Warnings    []string        `json:"warnings"`
	Suggestions []string        `json:"suggestions"`
	Evidence    Evidence        `json:"evidence"`
	Aggregate   AggregateResult `json:"aggregate"`
}
