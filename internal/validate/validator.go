// Package validate runs the structural checks whose findings feed the
// category scorers. Every check is fail-soft: problems become findings,
// never errors.
package validate

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/snapshot"
)

// Input is a single document to check
type Input struct {
	FilePath     string             // Document location, absolute or relative to Root
	Content      string             // Document text
	Root         string             // Project root; empty skips cross-reference checks
	Snapshot     *snapshot.Snapshot // Capability snapshot; nil skips reference checks
	ProbeWorkers int                // Concurrent cross-reference probes (0 = 16)
}

// Collect runs the Markdown, embedded-code and cross-reference validators
// in that order and returns their merged evidence.
func Collect(ctx context.Context, in Input) model.Evidence {
	if !utf8.ValidString(in.Content) || strings.TrimSpace(in.Content) == "" {
		return Markdown(in.Content, nil)
	}

	doc := extract.Parse(in.Content)

	ev := Markdown(in.Content, doc)
	ev.Merge(NewCodeValidator(in.Snapshot).Validate(doc))
	ev.Merge(NewCrossRefValidator(in.Root, in.ProbeWorkers).Validate(ctx, in.FilePath, doc))
	return ev
}
