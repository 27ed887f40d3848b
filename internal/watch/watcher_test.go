package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"docs/Guide.MARKDOWN", true},
		{"page.mdx", true},
		{"main.go", false},
		{"notes", false},
	}

	for _, tt := range tests {
		if got := IsMarkdown(tt.path); got != tt.want {
			t.Errorf("IsMarkdown(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func startWatcher(t *testing.T, minInterval time.Duration, paths ...string) chan string {
	t.Helper()
	changed := make(chan string, 16)

	w, err := New(50*time.Millisecond, minInterval, func(_ context.Context, path string) {
		changed <- path
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Add(paths...); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return changed
}

func TestWatcher_DebouncesMarkdownWrites(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, 0, dir)

	doc := filepath.Join(dir, "guide.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(doc, []byte("# Guide\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		want, _ := filepath.Abs(doc)
		if path != want {
			t.Errorf("Expected %s, got %s", want, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a change notification for the Markdown file")
	}

	select {
	case path := <-changed:
		t.Errorf("Expected a single debounced notification, also got %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.md")
	other := filepath.Join(dir, "other.md")
	if err := os.WriteFile(watched, []byte("# A\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changed := startWatcher(t, 0, watched)

	if err := os.WriteFile(other, []byte("# B\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(watched, []byte("# A2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "watched.md" {
			t.Errorf("Expected only the watched file, got %s", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a change notification")
	}
}

func TestWatcher_MinInterval(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "guide.md")
	changed := startWatcher(t, 600*time.Millisecond, dir)

	if err := os.WriteFile(doc, []byte("# Guide\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var first time.Time
	select {
	case <-changed:
		first = time.Now()
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a change notification")
	}

	// three settled saves inside the interval fold into one deferred run
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(doc, []byte("# Guide\n\nEdit.\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	select {
	case <-changed:
		if elapsed := time.Since(first); elapsed < 500*time.Millisecond {
			t.Errorf("Expected the second run to wait for the interval, ran after %v", elapsed)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a deferred notification after the interval")
	}

	select {
	case path := <-changed:
		t.Errorf("Expected held-back saves to share one run, also got %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_AddMissing(t *testing.T) {
	w, err := New(time.Millisecond, 0, func(context.Context, string) {})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.stop()

	if err := w.Add(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for a missing path")
	}
}
