package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/tier"
)

var (
	historyLimit int
	pruneAge     time.Duration
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "Show recorded validation runs",
	Long: `History lists validation runs recorded in the history database, newest
first. Recording is enabled with history.enabled in the config file or
DOCGATE_HISTORY_ENABLED=true.

Example:
  docgate history
  docgate history docs/guide.md --limit 5
  docgate history prune --older-than 720h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old validation runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
	historyPruneCmd.Flags().DurationVar(&pruneAge, "older-than", 30*24*time.Hour, "delete runs older than this")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filePath := ""
	if len(args) == 1 {
		filePath = args[0]
	}

	runs, err := store.List(cmd.Context(), filePath, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(os.Stderr, "No runs recorded in %s\n", cfg.History.Path)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMODE\tSCORE\tTIER\tRESULT\tSECTIONS\tFILE")
	for _, run := range runs {
		result := "pass"
		if !run.Passed {
			result = "fail"
		}
		sections := "-"
		if run.SectionsTotal > 0 {
			sections = fmt.Sprintf("%d/%d", run.SectionsPassed, run.SectionsTotal)
		}
		runTier := run.Tier
		if runTier == "" {
			runTier = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"), run.Mode, tier.FormatScore(run.Score),
			runTier, result, sections, run.FilePath)
	}
	return tw.Flush()
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.Prune(cmd.Context(), time.Now().Add(-pruneAge))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d run(s) older than %v\n", n, pruneAge)
	return nil
}
