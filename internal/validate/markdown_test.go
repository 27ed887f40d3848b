package validate

import (
	"strings"
	"testing"

	"github.com/ppiankov/docgate/internal/model"
)

func TestMarkdown_HeaderChecks(t *testing.T) {
	ev := Markdown("# Title\n\n#Bad header\n\n####### Too deep\n\n## Good\n", nil)

	if ev.CountErrors(model.KindMalformedHeader) != 1 {
		t.Errorf("Expected 1 malformed header, got %d", ev.CountErrors(model.KindMalformedHeader))
	}
	if ev.CountErrors(model.KindHeaderTooDeep) != 1 {
		t.Errorf("Expected 1 too-deep header, got %d", ev.CountErrors(model.KindHeaderTooDeep))
	}
	if ev.Errors[0].Line != 3 {
		t.Errorf("Expected first error on line 3, got %d", ev.Errors[0].Line)
	}
}

func TestMarkdown_IgnoresCodeBlocks(t *testing.T) {
	ev := Markdown("# Title\n\n```bash\n#comment\necho [[[[\n```\n", nil)

	if len(ev.Errors) != 0 {
		t.Errorf("Expected no errors inside code blocks, got %v", ev.ErrorMessages())
	}
}

func TestMarkdown_Brackets(t *testing.T) {
	tests := []struct {
		line    string
		errors  int
		warning bool
		desc    string
	}{
		{"Balanced [link](target) text", 0, false, "balanced line"},
		{"One open ( paren", 0, true, "minor imbalance is a warning"},
		{"Many [[[[ open", 1, false, "severe imbalance is an error"},
		{"Code span `[[[[` is ignored", 0, false, "inline code ignored"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			ev := Markdown("# T\n\n"+tt.line+"\n", nil)
			if got := ev.CountErrors(model.KindUnmatchedBracket); got != tt.errors {
				t.Errorf("Expected %d bracket errors, got %d", tt.errors, got)
			}
			if got := ev.HasKind(model.KindMinorBracket); got != tt.warning {
				t.Errorf("Expected minor bracket warning=%v, got %v", tt.warning, got)
			}
		})
	}
}

func TestMarkdown_UnclosedCodeBlock(t *testing.T) {
	ev := Markdown("# Title\n\nSome text here.\n\n```go\nfmt.Println(1)\n", nil)

	if ev.CountErrors(model.KindUnclosedCodeBlock) != 1 {
		t.Fatalf("Expected unclosed code block error, got %v", ev.ErrorMessages())
	}
	found := false
	for _, msg := range ev.ErrorMessages() {
		if strings.Contains(strings.ToLower(msg), "unclosed code block") {
			found = true
		}
	}
	if !found {
		t.Error("Expected error message to mention unclosed code block")
	}
	if ev.Errors[0].Line != 5 {
		t.Errorf("Expected error on line 5, got %d", ev.Errors[0].Line)
	}
}

func TestMarkdown_Warnings(t *testing.T) {
	ev := Markdown("# Title\n\ntrailing   \n\n![](diagram.png)\n\n```\n```\n", nil)

	for _, kind := range []model.FindingKind{model.KindTrailingSpace, model.KindMissingAltText, model.KindEmptyCodeBlock} {
		if !ev.HasKind(kind) {
			t.Errorf("Expected %s warning", kind)
		}
	}
	if len(ev.Errors) != 0 {
		t.Errorf("Expected warnings only, got errors %v", ev.ErrorMessages())
	}
}

func TestMarkdown_HTMLImageMissingAlt(t *testing.T) {
	ev := Markdown("# Title\n\n<img src=\"logo.png\">\n", nil)

	if !ev.HasKind(model.KindMissingAltText) {
		t.Error("Expected missing alt text warning for <img>")
	}
}

func TestMarkdown_EmptyAndUnparsable(t *testing.T) {
	ev := Markdown("  \n\t\n", nil)
	if len(ev.Errors) != 1 || ev.Errors[0].Kind != model.KindEmptyContent {
		t.Errorf("Expected single empty content error, got %v", ev.Errors)
	}

	ev = Markdown("# Title\n\xff\xfe broken", nil)
	if len(ev.Errors) != 1 || ev.Errors[0].Kind != model.KindUnparsable {
		t.Errorf("Expected single unparsable error, got %v", ev.Errors)
	}
}
