package model

// FindingKind classifies a structural validation finding
type FindingKind string

const (
	KindEmptyContent      FindingKind = "empty_content"        // Content is empty or whitespace only
	KindUnparsable        FindingKind = "unparsable"           // Content could not be scanned at all
	KindMalformedHeader   FindingKind = "malformed_header"     // Hash run without a following space
	KindHeaderTooDeep     FindingKind = "header_too_deep"      // More than six leading hashes
	KindUnmatchedBracket  FindingKind = "unmatched_bracket"    // Severe bracket/paren imbalance on a line
	KindMinorBracket      FindingKind = "minor_bracket"        // Small bracket/paren imbalance on a line
	KindUnclosedCodeBlock FindingKind = "unclosed_code_block"  // Odd number of fence lines
	KindEmptyCodeBlock    FindingKind = "empty_code_block"     // Fenced block with no content
	KindMissingAltText    FindingKind = "missing_alt_text"     // Image without alt text
	KindTrailingSpace     FindingKind = "trailing_whitespace"  // Line ends in whitespace
	KindCodeSyntax        FindingKind = "code_syntax"          // Embedded code failed to parse
	KindUnresolvedImport  FindingKind = "unresolved_import"    // Import not found in the project snapshot
	KindUnresolvedRef     FindingKind = "unresolved_reference" // Function or type not defined by the project
	KindUnresolvedCommand FindingKind = "unresolved_command"   // Shell command not known on this machine
	KindUnresolvedFile    FindingKind = "unresolved_file"      // Quoted file path not found in the project
	KindMissingReference  FindingKind = "missing_reference"    // Cross-reference target file does not exist
	KindMissingAnchor     FindingKind = "missing_anchor"       // Cross-reference anchor has no matching header
	KindUnverifiable      FindingKind = "unverifiable"         // A sub-check could not run
)

// IsSyntaxClass reports whether the finding counts against the Markdown syntax category
func (k FindingKind) IsSyntaxClass() bool {
	switch k {
	case KindMalformedHeader, KindHeaderTooDeep, KindUnmatchedBracket:
		return true
	default:
		return false
	}
}

// Finding is a single error or warning produced by a structural validator
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Line    int         `json:"line,omitempty"` // 1-based, 0 when not tied to a line
	Message string      `json:"message"`
}

// Evidence is the ordered error/warning output of the structural validators.
// Validators never fail; they append findings here instead.
type Evidence struct {
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

// AddError appends an error finding
func (e *Evidence) AddError(kind FindingKind, line int, message string) {
	e.Errors = append(e.Errors, Finding{Kind: kind, Line: line, Message: message})
}

// AddWarning appends a warning finding
func (e *Evidence) AddWarning(kind FindingKind, line int, message string) {
	e.Warnings = append(e.Warnings, Finding{Kind: kind, Line: line, Message: message})
}

// Merge appends other's findings after e's, preserving order
func (e *Evidence) Merge(other Evidence) {
	e.Errors = append(e.Errors, other.Errors...)
	e.Warnings = append(e.Warnings, other.Warnings...)
}

// CountErrors returns the number of errors of the given kind
func (e Evidence) CountErrors(kind FindingKind) int {
	n := 0
	for _, f := range e.Errors {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// HasKind reports whether any error or warning has the given kind
func (e Evidence) HasKind(kind FindingKind) bool {
	for _, f := range e.Errors {
		if f.Kind == kind {
			return true
		}
	}
	for _, f := range e.Warnings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// ErrorMessages returns error messages in order
func (e Evidence) ErrorMessages() []string {
	return messages(e.Errors)
}

// WarningMessages returns warning messages in order
func (e Evidence) WarningMessages() []string {
	return messages(e.Warnings)
}

func messages(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Message)
	}
	return out
}
