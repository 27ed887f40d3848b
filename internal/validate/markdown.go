package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
)

var (
	malformedHeaderPattern = regexp.MustCompile(`^#{1,6}[^\s#]`)
	deepHeaderPattern      = regexp.MustCompile(`^#{7,}`)
	inlineCodePattern      = regexp.MustCompile("`[^`]*`")
)

// severeBracketDiff is the per-line imbalance above which a bracket mismatch is an error
const severeBracketDiff = 2

// Markdown checks Markdown syntax line by line. It never fails: invalid
// UTF-8 yields a single unparsable error and no further checks.
func Markdown(text string, doc *extract.Document) model.Evidence {
	var ev model.Evidence

	if !utf8.ValidString(text) {
		ev.AddError(model.KindUnparsable, 0, "Content is not valid UTF-8 and could not be parsed")
		return ev
	}
	if strings.TrimSpace(text) == "" {
		ev.AddError(model.KindEmptyContent, 0, "Content is empty")
		return ev
	}
	if doc == nil {
		doc = extract.Parse(text)
	}

	for i, line := range doc.Lines {
		if doc.InCode(i) {
			continue
		}
		n := i + 1

		switch {
		case deepHeaderPattern.MatchString(line):
			ev.AddError(model.KindHeaderTooDeep, n, fmt.Sprintf("Line %d: Header has more than six '#' characters", n))
		case malformedHeaderPattern.MatchString(line):
			ev.AddError(model.KindMalformedHeader, n, fmt.Sprintf("Line %d: Header missing space after '#'", n))
		}

		if diff := bracketImbalance(line); diff > severeBracketDiff {
			ev.AddError(model.KindUnmatchedBracket, n, fmt.Sprintf("Line %d: Unmatched brackets or parentheses", n))
		} else if diff > 0 {
			ev.AddWarning(model.KindMinorBracket, n, fmt.Sprintf("Line %d: Possibly unmatched bracket or parenthesis", n))
		}

		if line != strings.TrimRight(line, " \t") {
			ev.AddWarning(model.KindTrailingSpace, n, fmt.Sprintf("Line %d: Trailing whitespace", n))
		}
	}

	if doc.FenceCount%2 != 0 {
		line := 0
		for _, b := range doc.Blocks {
			if !b.Closed {
				line = b.Line
			}
		}
		ev.AddError(model.KindUnclosedCodeBlock, line, fmt.Sprintf("Unclosed code block (opened at line %d)", line))
	}

	for _, b := range doc.Blocks {
		if b.IsEmpty() {
			ev.AddWarning(model.KindEmptyCodeBlock, b.Line, fmt.Sprintf("Line %d: Empty code block", b.Line))
		}
	}

	for _, img := range doc.Images {
		if img.Text == "" {
			ev.AddWarning(model.KindMissingAltText, img.Line, fmt.Sprintf("Line %d: Image missing alt text: %s", img.Line, img.Target))
		}
	}

	return ev
}

// bracketImbalance returns the larger of the square-bracket and parenthesis
// imbalances on a line, ignoring inline code spans.
func bracketImbalance(line string) int {
	line = inlineCodePattern.ReplaceAllString(line, "")
	square := abs(strings.Count(line, "[") - strings.Count(line, "]"))
	paren := abs(strings.Count(line, "(") - strings.Count(line, ")"))
	if square > paren {
		return square
	}
	return paren
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
