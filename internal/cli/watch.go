package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/pipeline"
	"github.com/ppiankov/docgate/internal/watch"
)

var (
	watchDebounce    time.Duration
	watchMinInterval time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Re-validate Markdown files as they change",
	Long: `Watch runs progressive validation on a Markdown file every time it is
saved. Directories are watched recursively; with no arguments the current
directory is watched. Rapid saves are debounced, and a file that keeps
changing is re-validated at most once per --min-interval.

Example:
  docgate watch
  docgate watch docs/ README.md --debounce 1s --min-interval 5s`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before re-validating (default: watch.debounce)")
	watchCmd.Flags().DurationVar(&watchMinInterval, "min-interval", 0, "minimum time between runs for one file (default: watch.min_interval)")
	watchCmd.Flags().StringVar(&projectRoot, "root", "", "project root for reference checks (default: detected per file)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce = watchDebounce
	}
	if cmd.Flags().Changed("min-interval") {
		cfg.Watch.MinInterval = watchMinInterval
	}

	p, provider, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	renderer := pipeline.NewRenderer(cmd.OutOrStdout(), cfg.Output.Color, cfg.Quality.Progressive.Thresholds)

	handler := func(ctx context.Context, path string) {
		doc, err := readDocument(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return
		}

		// a saved document can change which files and anchors exist
		provider.Invalidate(doc.root)

		outcome := p.ValidateProgressive(ctx, doc.path, doc.content, doc.root)
		fmt.Fprintf(cmd.OutOrStdout(), "\n[%s]\n", time.Now().Format("15:04:05"))
		renderer.RenderOutcome(doc.path, outcome)
		recordRun(ctx, cfg, history.FromOutcome(doc.path, outcome))
	}

	w, err := watch.New(cfg.Watch.Debounce, cfg.Watch.MinInterval, handler)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	if err := w.Add(paths...); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Watching %d path(s) for Markdown changes (Ctrl+C to stop)...\n", len(paths))
	if err := w.Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Stopped watching\n")
	return nil
}
