package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/pipeline"
	"github.com/ppiankov/docgate/internal/tier"
	"github.com/ppiankov/docgate/internal/watch"
	"github.com/ppiankov/docgate/internal/worker"
)

var (
	concurrency  int
	listFile     string
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Validate many Markdown files in parallel",
	Long: `Batch validates many documents concurrently:
- Files and directories (searched recursively for .md, .markdown and .mdx)
- Or a list file with one path per line (--list)
- Process files in parallel with configurable worker count
- Project snapshots are built once and shared between files
- Optionally write a JSON report per file

The command exits non-zero when any document fails validation.

Example:
  docgate batch docs/
  docgate batch README.md docs/ --concurrency 8 --output-dir ./docgate-reports
  docgate batch --list changed-docs.txt --timeout 2m`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.batch_workers)")
	batchCmd.Flags().StringVar(&listFile, "list", "", "file listing paths to validate, one per line")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write a JSON report per file to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum overall score (default: quality.min_score)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && listFile == "" {
		return fmt.Errorf("no input: pass files or directories, or --list")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.BatchWorkers = concurrency
	}
	if cmd.Flags().Changed("min-score") {
		cfg.Quality.MinScore = minScore
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  docgate Batch Validation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	if listFile != "" {
		fmt.Fprintf(os.Stderr, "  Input list:   %s\n", listFile)
	}
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.BatchWorkers)
	fmt.Fprintf(os.Stderr, "  Min score:    %s\n", tier.FormatScore(cfg.Quality.MinScore))
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	p, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Collecting Markdown files...\n")
	paths, err := collectPaths(args, listFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Found %d files\n", len(paths))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Validating with %d workers...\n", cfg.Concurrency.BatchWorkers)
	fmt.Fprintf(os.Stderr, "\n")

	results := p.ValidateFiles(ctx, paths)

	store, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	renderer := pipeline.NewRenderer(os.Stderr, cfg.Output.Color, cfg.Quality.Progressive.Thresholds)
	passCount, failCount, errorCount := 0, 0, 0

	for _, result := range results {
		if result.Error != nil {
			errorCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		report := result.Report
		if report.IsValid {
			passCount++
			fmt.Fprintf(os.Stderr, "✓ %s (score: %s/100)\n", result.Path, tier.FormatScore(report.Score))
		} else {
			failCount++
			fmt.Fprintf(os.Stderr, "✗ %s (score: %s/100, %d errors)\n", result.Path, tier.FormatScore(report.Score), len(report.Errors))
		}

		if outputDir != "" {
			jsonPath := filepath.Join(outputDir, sanitizeFilename(result.Path)+".json")
			if err := renderer.RenderJSON(report, jsonPath); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			}
		}

		if store != nil {
			if _, err := store.Record(ctx, history.FromResult(*report)); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Passed:    %d\n", passCount)
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", failCount)
	fmt.Fprintf(os.Stderr, "  Errors:    %d\n", errorCount)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failCount > 0 || errorCount > 0 {
		return ErrQualityGate
	}
	return nil
}

// collectPaths expands directories into the Markdown files beneath them
// and appends the paths read from listPath. Duplicates are dropped.
func collectPaths(args []string, listPath string) ([]string, error) {
	var inputs []string
	inputs = append(inputs, args...)
	if listPath != "" {
		listed, err := worker.ReadPathsFromFile(listPath)
		if err != nil {
			return nil, fmt.Errorf("read list: %w", err)
		}
		inputs = append(inputs, listed...)
	}

	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil || !info.IsDir() {
			// missing files surface as per-file errors
			add(in)
			continue
		}

		err = filepath.WalkDir(in, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != in && watch.SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if watch.IsMarkdown(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", in, err)
		}
	}
	return paths, nil
}

// sanitizeFilename turns a document path into a flat report file name
func sanitizeFilename(s string) string {
	s = filepath.ToSlash(filepath.Clean(s))
	s = strings.TrimLeft(s, "./")

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)
	if s == "" {
		s = "report"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
