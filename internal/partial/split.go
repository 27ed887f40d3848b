// Package partial splits a document into header-delimited sections,
// validates each one on its own and assembles the passing sections into a
// trimmed document.
package partial

import (
	"regexp"
	"strings"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
)

// splitHeaderPattern matches the headers that start a section. Level-1
// headers are titles and never split.
var splitHeaderPattern = regexp.MustCompile(`^(#{2,6})\s+(\S.*)$`)

// Split cuts text into sections at level 2-6 headers outside code blocks.
// Lines before the first split header belong to the first section. Text
// without split headers yields a single "Full Document" section; blank text
// yields none.
func Split(text string) []model.Section {
	doc := extract.Parse(text)
	lines := doc.Lines

	var sections []model.Section
	var current *model.Section

	closeAt := func(end int) {
		if current == nil {
			return
		}
		current.EndLine = end
		current.Content = strings.TrimSpace(strings.Join(lines[current.StartLine-1:end], "\n"))
		if current.Content != "" {
			sections = append(sections, *current)
		}
	}

	for i, line := range lines {
		if doc.InCode(i) {
			continue
		}
		m := splitHeaderPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		if current == nil {
			current = &model.Section{StartLine: 1, PreambleLines: i}
		} else {
			closeAt(i)
			current = &model.Section{StartLine: i + 1}
		}
		current.Name = strings.TrimSpace(m[2])
		current.Level = len(m[1])
	}

	if current != nil {
		closeAt(len(lines))
		return sections
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	return []model.Section{{
		Name:          model.FullDocumentName,
		Content:       strings.TrimSpace(text),
		StartLine:     1,
		EndLine:       len(lines),
		PreambleLines: titleLines(lines),
	}}
}

// titleLines returns how many leading lines make up a level-1 title,
// counting blank lines before it. Zero when the text does not open with one.
func titleLines(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return i + 1
		}
		return 0
	}
	return 0
}
