package validate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
)

func crossRefFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md":     "# Project\n",
		"docs/guide.md": "# Guide\n\n## Getting Started!\n\n## API Reference\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestCrossRefValidator_Resolution(t *testing.T) {
	root := crossRefFixture(t)

	content := strings.Join([]string{
		"# Index",
		"",
		"## Intro",
		"",
		"See the [guide](guide.md) and the [readme](README.md).",
		"Jump to [getting started](guide.md#getting-started) or [the api](./guide.md#API-Reference).",
		"Broken [missing page](missing.md) and [bad anchor](guide.md#nowhere).",
		"External [site](https://example.com/docs) and [mail](mailto:a@example.com).",
		"Local [intro](#intro) and [unknown](#unknown-part).",
	}, "\n")

	v := NewCrossRefValidator(root, 2)
	ev := v.Validate(context.Background(), "docs/index.md", extract.Parse(content))

	if len(ev.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %v", ev.ErrorMessages())
	}
	if ev.Errors[0].Kind != model.KindMissingReference || ev.Errors[0].Line != 7 {
		t.Errorf("Expected missing reference on line 7, got %+v", ev.Errors[0])
	}
	if !strings.Contains(ev.Errors[0].Message, "missing.md") {
		t.Errorf("Expected error to name the target, got %q", ev.Errors[0].Message)
	}

	if len(ev.Warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", ev.WarningMessages())
	}
	for _, w := range ev.Warnings {
		if w.Kind != model.KindMissingAnchor {
			t.Errorf("Expected missing anchor warning, got %+v", w)
		}
	}
	if ev.Warnings[0].Line != 7 || ev.Warnings[1].Line != 9 {
		t.Errorf("Expected warnings in link order (lines 7, 9), got %d, %d", ev.Warnings[0].Line, ev.Warnings[1].Line)
	}
}

func TestCrossRefValidator_AbsoluteDocumentPath(t *testing.T) {
	root := crossRefFixture(t)
	doc := extract.Parse("# Doc\n\nRead the [guide](guide.md).\n")

	ev := NewCrossRefValidator(root, 0).Validate(context.Background(), filepath.Join(root, "docs", "other.md"), doc)
	if len(ev.Errors) != 0 {
		t.Errorf("Expected link next to the document to resolve, got %v", ev.ErrorMessages())
	}
}

func TestCrossRefValidator_NoRoot(t *testing.T) {
	doc := extract.Parse("# Doc\n\n[missing](missing.md)\n")

	ev := NewCrossRefValidator("", 4).Validate(context.Background(), "", doc)
	if len(ev.Errors) != 0 || len(ev.Warnings) != 0 {
		t.Error("Expected no findings without a project root")
	}
}

func TestNormalizeAnchor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"getting-started", "getting started"},
		{"Getting Started!", "getting started"},
		{"API_Reference", "api_reference"},
		{"  What's  new?  ", "whats new"},
	}

	for _, tt := range tests {
		if got := normalizeAnchor(tt.in); got != tt.want {
			t.Errorf("normalizeAnchor(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestCollect_MergesValidators(t *testing.T) {
	root := crossRefFixture(t)
	content := "# Title\n\n#Broken\n\n[gone](gone.md)\n\n```json\n{bad}\n```\n"

	ev := Collect(context.Background(), Input{FilePath: "README.md", Content: content, Root: root})

	kinds := []model.FindingKind{model.KindMalformedHeader, model.KindCodeSyntax, model.KindMissingReference}
	if len(ev.Errors) != len(kinds) {
		t.Fatalf("Expected %d errors, got %v", len(kinds), ev.ErrorMessages())
	}
	for i, kind := range kinds {
		if ev.Errors[i].Kind != kind {
			t.Errorf("Expected error %d to be %s, got %s", i, kind, ev.Errors[i].Kind)
		}
	}
}

func TestCollect_Empty(t *testing.T) {
	ev := Collect(context.Background(), Input{Content: ""})
	if len(ev.Errors) != 1 || !strings.Contains(ev.Errors[0].Message, "empty") {
		t.Errorf("Expected empty content error, got %v", ev.ErrorMessages())
	}
}
