package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/docgate/internal/cache"
)

func writeFile(t *testing.T, root, rel, content string, mode os.FileMode) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func fixtureProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/widget\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.10.2\n", 0644)
	writeFile(t, root, "internal/widget/widget.go", "package widget\n\ntype Widget struct{}\n\nfunc NewWidget() *Widget { return &Widget{} }\n", 0644)
	writeFile(t, root, "cmd/widgetctl/main.go", "package main\n\nfunc main() {}\n", 0644)
	writeFile(t, root, "tools/helper.py", "class Helper:\n    def run(self):\n        pass\n", 0644)
	writeFile(t, root, "pkgpy/__init__.py", "", 0644)
	writeFile(t, root, "pyproject.toml", "[project]\nname = \"widget-tools\"\ndependencies = [\"requests>=2.0\"]\n", 0644)
	writeFile(t, root, "scripts/deploy.sh", "#!/bin/sh\necho deploy\n", 0755)
	writeFile(t, root, "Makefile", "all:\n\techo ok\n", 0644)
	writeFile(t, root, "node_modules/dep/index.js", "function hidden() {}\n", 0644)
	writeFile(t, root, "docs/guide.md", "# Guide\n", 0644)
	return root
}

func TestBuild_CollectsCapabilities(t *testing.T) {
	root := fixtureProject(t)

	snap, err := Build(root, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !snap.HasFunction("NewWidget") {
		t.Error("Expected Go function NewWidget")
	}
	if !snap.HasType("Widget") {
		t.Error("Expected Go type Widget")
	}
	if !snap.HasFunction("run") || !snap.HasType("Helper") {
		t.Error("Expected Python def/class to be indexed")
	}
	if snap.HasFunction("hidden") {
		t.Error("Expected node_modules to be skipped")
	}

	for _, mod := range []string{"example.com/widget", "github.com/spf13/cobra", "widget_tools", "requests", "pkgpy"} {
		if !snap.HasModule(mod) {
			t.Errorf("Expected module %q", mod)
		}
	}
	if !snap.HasModule("example.com/widget/internal/widget") {
		t.Error("Expected nested import path to resolve to its module")
	}
	if snap.HasModule("example.org/other") {
		t.Error("Expected unknown module to be missing")
	}

	for _, cmd := range []string{"widgetctl", "deploy", "make", "go", "python"} {
		if !snap.HasCommand(cmd) {
			t.Errorf("Expected command %q", cmd)
		}
	}

	if !snap.HasFile("docs/guide.md") || !snap.HasFile("./docs/guide.md") {
		t.Error("Expected docs/guide.md to be tracked")
	}
	if !snap.HasFile("guide.md") {
		t.Error("Expected bare file name to match")
	}
}

func TestBuild_MaxFiles(t *testing.T) {
	root := fixtureProject(t)

	snap, err := Build(root, Options{MaxFiles: 2})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !snap.Truncated {
		t.Error("Expected truncated snapshot")
	}
	if len(snap.Files) > 2 {
		t.Errorf("Expected at most 2 files, got %d", len(snap.Files))
	}
}

func TestBuild_MissingRoot(t *testing.T) {
	if _, err := Build(filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestNilSnapshot(t *testing.T) {
	var snap *Snapshot
	if snap.HasFunction("x") || snap.HasModule("x") || snap.HasFile("x") || snap.HasCommand("x") || snap.HasType("x") {
		t.Error("Expected nil snapshot to know nothing")
	}
}

func TestProvider_CachesPerRoot(t *testing.T) {
	root := fixtureProject(t)
	provider := NewProvider(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, Options{})

	first, err := provider.Get(root)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// new files are invisible until the cached snapshot is invalidated
	writeFile(t, root, "docs/new.md", "# New\n", 0644)

	second, err := provider.Get(root)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.HasFile("docs/new.md") {
		t.Error("Expected cached snapshot to be reused")
	}
	if !first.BuiltAt.Equal(second.BuiltAt) {
		t.Error("Expected same build time for cached snapshot")
	}

	provider.Invalidate(root)
	third, err := provider.Get(root)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !third.HasFile("docs/new.md") {
		t.Error("Expected rebuilt snapshot to see new file")
	}
}

func TestProvider_EmptyRoot(t *testing.T) {
	provider := NewProvider(nil, time.Minute, Options{})
	snap, err := provider.Get("")
	if err != nil || snap != nil {
		t.Errorf("Expected nil snapshot without error, got %v, %v", snap, err)
	}
}
