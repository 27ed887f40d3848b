// Package score implements the six category scorers and the weighted
// aggregate. Every scorer is a pure function of the document text and the
// structural validators' evidence.
package score

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
)

var (
	introPattern       = regexp.MustCompile(`(?m)^\s*[A-Z][^\n]*[.!?](\s|$)`)
	listPattern        = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+\S`)
	placeholderPattern = regexp.MustCompile(`\b(TODO|FIXME|XXX|TBD)\b|(?i:\[placeholder\])|\.\.\.|…`)
	conclusionPattern  = regexp.MustCompile(`(?i)conclusion|summary|next steps`)
	acronymPattern     = regexp.MustCompile(`\b[A-Z]{2,}\b`)
)

// nonDescriptiveLinkText is matched literally, case-insensitively
var nonDescriptiveLinkText = map[string]bool{
	"here":       true,
	"click here": true,
	"link":       true,
}

const (
	introWindow          = 200 // Characters searched for an introductory sentence
	substantialParagraph = 50  // Characters for a paragraph to count as substantial
	conclusionMinLength  = 500 // Characters above which a conclusion is expected
	longSentenceWords    = 25
	longParagraphWords   = 100
	acronymLimit         = 5
)

// tally accumulates a category score from a baseline
type tally struct {
	result model.CategoryScore
	score  float64
}

func newTally(c model.Category, baseline float64) *tally {
	return &tally{
		result: model.CategoryScore{
			Category:    c,
			Issues:      []string{},
			Suggestions: []string{},
			Metrics:     map[string]float64{},
		},
		score: baseline,
	}
}

func (t *tally) deduct(points float64, issue, suggestion string) {
	t.score -= points
	t.result.Issues = append(t.result.Issues, issue)
	t.result.Suggestions = append(t.result.Suggestions, suggestion)
}

func (t *tally) bonus(points float64) {
	t.score += points
}

func (t *tally) metric(name string, value int) {
	t.result.Metrics[name] = float64(value)
}

func (t *tally) done() model.CategoryScore {
	t.result.Score = clamp(t.score)
	return t.result
}

// Structure scores headers, an introduction, length and lists (baseline 100)
func Structure(doc *extract.Document, _ model.Evidence) model.CategoryScore {
	t := newTally(model.CategoryStructure, 100)

	headers := len(doc.Headers)
	switch headers {
	case 0:
		t.deduct(30, "No headers found", "Add a title and section headers to organize the content")
	case 1:
		t.deduct(10, "Only one header found", "Break the content into sections with sub-headers")
	}

	if !introPattern.MatchString(introText(doc)) {
		t.deduct(15, "No introductory sentence near the top", "Open with a sentence explaining what the document covers")
	}

	nonBlank := doc.NonBlankLines()
	if nonBlank < 5 {
		t.deduct(25, fmt.Sprintf("Content is very short (%d lines)", nonBlank), "Expand the content with explanations and examples")
	} else if nonBlank < 10 {
		t.deduct(10, fmt.Sprintf("Content is short (%d lines)", nonBlank), "Add more detail to the content")
	}

	lists := 0
	for i, line := range doc.Lines {
		if !doc.InCode(i) && listPattern.MatchString(line) && !extract.IsHorizontalRule(line) {
			lists++
		}
	}
	if lists == 0 && nonBlank > 10 {
		t.deduct(10, "No lists found", "Use bullet or numbered lists for steps and options")
	}

	t.metric("headers", headers)
	t.metric("non_blank_lines", nonBlank)
	t.metric("list_items", lists)
	return t.done()
}

// introText is the first characters of the document with headers and code removed
func introText(doc *extract.Document) string {
	var kept []string
	for i, line := range doc.Lines {
		if doc.InCode(i) || extract.IsHeader(line) {
			continue
		}
		kept = append(kept, line)
	}
	text := strings.TrimSpace(strings.Join(kept, "\n"))
	if utf8.RuneCountInString(text) > introWindow {
		text = string([]rune(text)[:introWindow])
	}
	return text
}

// Syntax scores Markdown well-formedness from validator evidence (baseline 100)
func Syntax(doc *extract.Document, ev model.Evidence) model.CategoryScore {
	t := newTally(model.CategorySyntax, 100)

	syntaxErrors := 0
	for _, f := range ev.Errors {
		if f.Kind.IsSyntaxClass() {
			syntaxErrors++
			t.deduct(20, f.Message, "Fix the Markdown syntax error")
		}
	}

	if doc.FenceCount%2 != 0 {
		t.deduct(15, "Odd number of code fences", "Close every fenced code block with ```")
	}

	emptyLinks := 0
	for _, l := range doc.Links {
		if l.Target == "" {
			emptyLinks++
		}
	}
	for _, l := range doc.Images {
		if l.Target == "" {
			emptyLinks++
		}
	}
	if emptyLinks > 0 {
		t.deduct(10, fmt.Sprintf("%d links with empty targets", emptyLinks), "Give every link a target")
	}

	t.metric("syntax_errors", syntaxErrors)
	t.metric("fences", doc.FenceCount)
	t.metric("empty_links", emptyLinks)
	return t.done()
}

// CodeExamples scores fenced code blocks (baseline 80, or 60 without any)
func CodeExamples(doc *extract.Document, ev model.Evidence) model.CategoryScore {
	blocks := len(doc.Blocks)
	if blocks == 0 {
		t := newTally(model.CategoryCodeExamples, 60)
		t.result.Issues = append(t.result.Issues, "No code examples found")
		t.result.Suggestions = append(t.result.Suggestions, "Add code examples where they help")
		t.metric("blocks", 0)
		return t.done()
	}

	t := newTally(model.CategoryCodeExamples, 80)

	untagged, empty := 0, 0
	for _, b := range doc.Blocks {
		if b.Language == "" {
			untagged++
		}
		if b.IsEmpty() {
			empty++
		}
	}

	if untagged > 0 {
		t.deduct(10, fmt.Sprintf("%d code blocks without a language tag", untagged), "Tag code blocks with their language for highlighting")
	}
	if empty > 0 {
		t.deduct(15, fmt.Sprintf("%d empty code blocks", empty), "Fill in or remove empty code blocks")
	}
	if blocks-empty >= 2 {
		t.bonus(10)
	}

	t.metric("blocks", blocks)
	t.metric("untagged", untagged)
	t.metric("empty", empty)
	t.metric("syntax_errors", ev.CountErrors(model.KindCodeSyntax))
	return t.done()
}

// CrossReferences scores link usage (baseline 80, or 70 without links)
func CrossReferences(doc *extract.Document, _ model.Evidence) model.CategoryScore {
	if len(doc.Links) == 0 {
		t := newTally(model.CategoryCrossReferences, 70)
		t.result.Issues = append(t.result.Issues, "No links found")
		t.result.Suggestions = append(t.result.Suggestions, "Link to related documents and references")
		t.metric("links", 0)
		return t.done()
	}

	t := newTally(model.CategoryCrossReferences, 80)

	internal, external, vague := 0, 0, 0
	for _, l := range doc.Links {
		if nonDescriptiveLinkText[strings.ToLower(strings.TrimSpace(l.Text))] {
			vague++
		}
		if l.Target == "" {
			continue
		}
		if l.Kind() == extract.LinkExternal {
			external++
		} else {
			internal++
		}
	}

	if vague > 0 {
		t.deduct(10, fmt.Sprintf("%d links with non-descriptive text", vague), "Use link text that describes the target")
	}
	if internal > 0 && external > 0 {
		t.bonus(10)
	}

	t.metric("links", len(doc.Links))
	t.metric("internal", internal)
	t.metric("external", external)
	t.metric("non_descriptive", vague)
	return t.done()
}

// Completeness scores placeholders, paragraph depth and a closing section (baseline 100)
func Completeness(doc *extract.Document, _ model.Evidence) model.CategoryScore {
	t := newTally(model.CategoryCompleteness, 100)

	placeholders := len(placeholderPattern.FindAllStringIndex(doc.Text, -1))
	if placeholders > 0 {
		t.deduct(float64(15*placeholders), fmt.Sprintf("%d placeholder items found", placeholders), "Replace TODO, TBD and other placeholders with real content")
	}

	substantial := 0
	for _, p := range doc.Paragraphs() {
		if utf8.RuneCountInString(p) > substantialParagraph {
			substantial++
		}
	}
	if substantial < 2 {
		t.deduct(20, fmt.Sprintf("Only %d substantial paragraphs", substantial), "Add explanatory paragraphs")
	} else if substantial < 3 {
		t.deduct(10, fmt.Sprintf("Only %d substantial paragraphs", substantial), "Add another explanatory paragraph")
	}

	if utf8.RuneCountInString(doc.Text) > conclusionMinLength && !conclusionPattern.MatchString(doc.Text) {
		t.deduct(5, "No conclusion or summary", "Finish with a summary or next steps")
	}

	t.metric("placeholders", placeholders)
	t.metric("substantial_paragraphs", substantial)
	return t.done()
}

// Readability scores sentence length, acronym density and paragraph length (baseline 100)
func Readability(doc *extract.Document, _ model.Evidence) model.CategoryScore {
	t := newTally(model.CategoryReadability, 100)

	sentences := doc.Sentences()
	long := 0
	for _, s := range sentences {
		if words := len(strings.Fields(s)); words > longSentenceWords {
			long++
			t.deduct(5, fmt.Sprintf("Long sentence (%d words)", words), "Split long sentences")
		}
	}

	acronyms := len(acronymPattern.FindAllString(doc.Prose(), -1))
	if acronyms > acronymLimit {
		t.deduct(5, fmt.Sprintf("High acronym density (%d all-caps words)", acronyms), "Spell out acronyms on first use")
	}

	longParagraphs := 0
	for _, p := range doc.Paragraphs() {
		if words := len(strings.Fields(p)); words > longParagraphWords {
			longParagraphs++
			t.deduct(3, fmt.Sprintf("Long paragraph (%d words)", words), "Break long paragraphs up")
		}
	}

	t.metric("sentences", len(sentences))
	t.metric("long_sentences", long)
	t.metric("acronyms", acronyms)
	t.metric("long_paragraphs", longParagraphs)
	return t.done()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
