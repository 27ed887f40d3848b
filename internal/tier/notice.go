package tier

import (
	"fmt"
	"strings"

	"github.com/ppiankov/docgate/internal/model"
)

// TierNotice is the one-line blockquote announcing a below-High acceptance
func TierNotice(t model.Tier, score, threshold float64) string {
	return fmt.Sprintf("> %s **Quality Notice:** accepted at %s tier (score %s/100, threshold %s)",
		t.Icon(), t, FormatScore(score), FormatScore(threshold))
}

// FallbackBlock is the warning block inserted when no tier accepts the content
func FallbackBlock(score, threshold float64, reasons, actions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "> %s **Quality Warning:** this content did not meet the minimum quality threshold (score %s/100, threshold %s) and needs review.",
		model.TierFallback.Icon(), FormatScore(score), FormatScore(threshold))

	if len(reasons) > 0 {
		b.WriteString("\n>\n> **Top issues:**")
		for _, r := range reasons {
			b.WriteString("\n> - " + r)
		}
	}
	if len(actions) > 0 {
		b.WriteString("\n>\n> **Suggested actions:**")
		for _, a := range actions {
			b.WriteString("\n> - " + a)
		}
	}
	return b.String()
}

// InsertNotice places notice after the document title and any metadata
// lines that follow it (blank lines or lines starting with '*'). A leading
// YAML front-matter block is kept ahead of everything. Content without a
// title gets the notice at the top, below any front matter.
func InsertNotice(content, notice string) string {
	lines := strings.Split(content, "\n")

	start := frontMatterEnd(lines)
	idx := start
	for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
		idx++
	}

	if idx < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[idx]), "#") {
		idx++
		for idx < len(lines) {
			trimmed := strings.TrimSpace(lines[idx])
			if trimmed != "" && !strings.HasPrefix(trimmed, "*") {
				break
			}
			idx++
		}
	} else {
		idx = start
	}

	// back up over trailing blank lines so spacing stays intact
	for idx > start && strings.TrimSpace(lines[idx-1]) == "" {
		idx--
	}

	var out []string
	out = append(out, lines[:idx]...)
	if idx > 0 {
		out = append(out, "")
	}
	out = append(out, notice)
	rest := lines[idx:]
	if len(rest) > 0 && strings.TrimSpace(rest[0]) != "" {
		out = append(out, "")
	}
	out = append(out, rest...)

	return strings.Join(out, "\n")
}

// frontMatterEnd returns the index of the first line after a leading
// "---" front-matter block, or 0 when there is none
func frontMatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\r") != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		switch strings.TrimRight(lines[i], " \t\r") {
		case "---", "...":
			return i + 1
		}
	}
	return 0
}
