package extract

import (
	"regexp"
	"strings"
)

var (
	headerPattern = regexp.MustCompile(`^(#{1,6})\s+(\S.*)$`)
	hrPattern     = regexp.MustCompile(`^\s*([-*_])(\s*[-*_]){2,}\s*$`)
)

// Header is an ATX header found outside code blocks
type Header struct {
	Level int
	Text  string
	Line  int // 1-based
}

// CodeBlock is a fenced code block
type CodeBlock struct {
	Language string
	Content  string
	Line     int  // 1-based line of the opening fence
	Closed   bool // False when the document ends inside the block
}

// IsEmpty reports whether the block has no non-blank content
func (b CodeBlock) IsEmpty() bool {
	return strings.TrimSpace(b.Content) == ""
}

// Document is a scanned Markdown document
type Document struct {
	Text       string
	Lines      []string
	Headers    []Header
	Blocks     []CodeBlock
	FenceCount int
	Links      []Link
	Images     []Link

	inCode []bool
}

// Parse scans Markdown text. It never fails; malformed input simply yields fewer elements.
func Parse(text string) *Document {
	doc := &Document{Text: text, Lines: SplitLines(text)}
	doc.inCode = make([]bool, len(doc.Lines))

	var current *CodeBlock
	var body []string

	for i, line := range doc.Lines {
		if IsFence(line) {
			doc.FenceCount++
			doc.inCode[i] = true
			if current == nil {
				current = &CodeBlock{Language: fenceLanguage(line), Line: i + 1}
				body = body[:0]
			} else {
				current.Content = strings.Join(body, "\n")
				current.Closed = true
				doc.Blocks = append(doc.Blocks, *current)
				current = nil
			}
			continue
		}

		if current != nil {
			doc.inCode[i] = true
			body = append(body, line)
			continue
		}

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			doc.Headers = append(doc.Headers, Header{
				Level: len(m[1]),
				Text:  cleanHeaderText(m[2]),
				Line:  i + 1,
			})
		}
	}

	if current != nil {
		current.Content = strings.Join(body, "\n")
		doc.Blocks = append(doc.Blocks, *current)
	}

	doc.extractLinks()

	return doc
}

// SplitLines splits on newlines and strips carriage returns
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// IsFence reports whether a line opens or closes a fenced code block
func IsFence(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "```")
}

// IsHeader reports whether a line is an ATX header
func IsHeader(line string) bool {
	return headerPattern.MatchString(line)
}

// IsHorizontalRule reports whether a line is a thematic break
func IsHorizontalRule(line string) bool {
	return hrPattern.MatchString(line)
}

// InCode reports whether the 0-based line index is inside (or is) a code fence
func (d *Document) InCode(i int) bool {
	return i >= 0 && i < len(d.inCode) && d.inCode[i]
}

// NonBlankLines counts lines with visible content
func (d *Document) NonBlankLines() int {
	n := 0
	for _, l := range d.Lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

// Paragraphs returns blank-line separated prose blocks. Code blocks break
// paragraphs; header lines and horizontal rules are dropped.
func (d *Document) Paragraphs() []string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			p := strings.TrimSpace(strings.Join(current, " "))
			if p != "" {
				paragraphs = append(paragraphs, p)
			}
			current = current[:0]
		}
	}

	for i, line := range d.Lines {
		trimmed := strings.TrimSpace(line)
		if d.InCode(i) || trimmed == "" {
			flush()
			continue
		}
		if IsHeader(line) || strings.HasPrefix(trimmed, "#") || IsHorizontalRule(line) {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	return paragraphs
}

// Prose returns all paragraph text joined by blank lines
func (d *Document) Prose() string {
	return strings.Join(d.Paragraphs(), "\n\n")
}

// Sentences splits prose into sentences
func (d *Document) Sentences() []string {
	var sentences []string
	for _, p := range d.Paragraphs() {
		sentences = append(sentences, splitSentences(p)...)
	}
	return sentences
}

// ProseWords counts whitespace-separated words in prose
func (d *Document) ProseWords() int {
	n := 0
	for _, p := range d.Paragraphs() {
		n += len(strings.Fields(p))
	}
	return n
}

// splitSentences splits text on sentence terminators followed by whitespace or end of text
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\t' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func fenceLanguage(line string) string {
	rest := strings.TrimPrefix(strings.TrimLeft(line, " \t"), "```")
	rest = strings.TrimLeft(rest, "`")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	lang := strings.Trim(fields[0], "{}.")
	return strings.ToLower(lang)
}

func cleanHeaderText(s string) string {
	s = strings.TrimSpace(s)
	// closing hashes only count when separated by a space ("C#" stays intact)
	if trimmed := strings.TrimRight(s, "#"); trimmed != s && strings.HasSuffix(trimmed, " ") {
		s = trimmed
	}
	return strings.TrimSpace(s)
}
