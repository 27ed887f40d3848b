package model

// FullDocumentName names the synthetic section used when a document has no split headers
const FullDocumentName = "Full Document"

// Section is a header-delimited slice of a document
type Section struct {
	Name          string `json:"name"`
	Content       string `json:"content"`        // Trimmed raw slice, header line included
	StartLine     int    `json:"start_line"`     // 1-based, inclusive
	EndLine       int    `json:"end_line"`       // 1-based, inclusive
	Level         int    `json:"level"`          // Header level, 0 for the synthetic section
	PreambleLines int    `json:"preamble_lines"` // Pre-header lines carried by the first section
}

// SectionOutcome is the validation result of one section
type SectionOutcome struct {
	Section     Section       `json:"section"`
	Outcome     TieredOutcome `json:"outcome"`
	DisplayTier Tier          `json:"display_tier"`
	Passed      bool          `json:"passed"`
}

// Score returns the section's standalone overall score
func (s SectionOutcome) Score() float64 {
	return s.Outcome.Aggregate.Overall
}

// PartialAssembly is the result of the degrade-then-split pipeline
type PartialAssembly struct {
	Total          int              `json:"total"`
	Passed         int              `json:"passed"`
	Failed         int              `json:"failed"`
	Content        string           `json:"content"`
	OverallSuccess bool             `json:"overall_success"` // Passed > 0
	PartialSave    bool             `json:"partial_save"`    // Passed > 0 && Failed > 0
	MeanScore      float64          `json:"mean_score"`      // Over passed sections only
	Split          bool             `json:"split"`           // False when the whole document was accepted
	Whole          TieredOutcome    `json:"whole"`
	Sections       []SectionOutcome `json:"sections,omitempty"`
}
