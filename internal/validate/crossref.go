package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
)

// CrossRefValidator resolves relative links against a project tree concurrently
type CrossRefValidator struct {
	root       string
	maxWorkers int
}

// NewCrossRefValidator creates a validator rooted at root. An empty root
// disables all checks.
func NewCrossRefValidator(root string, maxWorkers int) *CrossRefValidator {
	if maxWorkers <= 0 {
		maxWorkers = 16
	}
	return &CrossRefValidator{root: root, maxWorkers: maxWorkers}
}

// Validate checks every non-external link in doc. filePath locates the
// document itself (absolute or relative to the root) and may be empty.
func (v *CrossRefValidator) Validate(ctx context.Context, filePath string, doc *extract.Document) model.Evidence {
	if v.root == "" || len(doc.Links) == 0 {
		return model.Evidence{}
	}

	results := make([]model.Evidence, len(doc.Links))
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent probes
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, link := range doc.Links {
		wg.Add(1)
		go func(idx int, l extract.Link) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx].AddWarning(model.KindUnverifiable, l.Line,
					fmt.Sprintf("Line %d: Could not verify link %q: context cancelled", l.Line, l.Target))
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.checkLink(filePath, doc, l)
		}(i, link)
	}

	wg.Wait()

	// merge in link order so output is deterministic
	var ev model.Evidence
	for _, r := range results {
		ev.Merge(r)
	}
	return ev
}

func (v *CrossRefValidator) checkLink(filePath string, doc *extract.Document, link extract.Link) model.Evidence {
	var ev model.Evidence
	if link.Target == "" || link.Kind() == extract.LinkExternal {
		return ev
	}

	file, anchor := extract.SplitTarget(link.Target)

	// pure fragment: the current document's own headers
	if file == "" {
		if anchor != "" && !matchAnchor(anchor, doc.Headers) {
			ev.AddWarning(model.KindMissingAnchor, link.Line,
				fmt.Sprintf("Line %d: Anchor #%s does not match any header in this document", link.Line, anchor))
		}
		return ev
	}

	resolved, err := v.resolve(filePath, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ev.AddError(model.KindMissingReference, link.Line,
				fmt.Sprintf("Line %d: Broken link: %s not found", link.Line, link.Target))
		} else {
			ev.AddWarning(model.KindUnverifiable, link.Line,
				fmt.Sprintf("Line %d: Could not verify link %q: %v", link.Line, link.Target, err))
		}
		return ev
	}

	if anchor == "" {
		return ev
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		ev.AddWarning(model.KindUnverifiable, link.Line,
			fmt.Sprintf("Line %d: Could not verify anchor in %q: %v", link.Line, link.Target, err))
		return ev
	}
	if !matchAnchor(anchor, extract.Parse(string(data)).Headers) {
		ev.AddWarning(model.KindMissingAnchor, link.Line,
			fmt.Sprintf("Line %d: Anchor #%s not found in %s", link.Line, anchor, file))
	}
	return ev
}

// resolve finds a link target next to the document first, then under the
// project root. It returns fs.ErrNotExist when neither exists.
func (v *CrossRefValidator) resolve(docPath, target string) (string, error) {
	var candidates []string
	if filepath.IsAbs(target) || strings.HasPrefix(target, "/") {
		candidates = append(candidates, filepath.Join(v.root, filepath.FromSlash(target)))
	} else {
		if docPath != "" {
			docDir := filepath.Dir(docPath)
			if !filepath.IsAbs(docDir) {
				docDir = filepath.Join(v.root, docDir)
			}
			candidates = append(candidates, filepath.Join(docDir, filepath.FromSlash(target)))
		}
		candidates = append(candidates, filepath.Join(v.root, filepath.FromSlash(target)))
	}

	var lastErr error = fs.ErrNotExist
	for _, c := range candidates {
		_, err := os.Stat(c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			lastErr = err
		}
	}
	return "", lastErr
}

// matchAnchor compares an anchor with header texts case-insensitively,
// treating hyphens as spaces and ignoring punctuation.
func matchAnchor(anchor string, headers []extract.Header) bool {
	want := normalizeAnchor(anchor)
	for _, h := range headers {
		if normalizeAnchor(h.Text) == want {
			return true
		}
	}
	return false
}

func normalizeAnchor(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "-", " "))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
