package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/pipeline"
)

var (
	projectRoot string
	minScore    float64
	jsonOut     string
	writeOut    string
	forceSplit  bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Score a Markdown document against a minimum",
	Long: `Validate scores a document once and reports it against a minimum score:
- Six category scores with issues and suggestions
- Structural errors and warnings (headers, brackets, code fences, images)
- Code examples checked for syntax and against the project
- Internal links and anchors resolved

The command exits non-zero when the document is below the minimum or has errors.
Use "-" to read the document from stdin.

Example:
  docgate validate README.md
  docgate validate docs/guide.md --min-score 80 --json report.json
  cat draft.md | docgate validate - --root .`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// progressiveCmd represents the progressive command
var progressiveCmd = &cobra.Command{
	Use:   "progressive <file>",
	Short: "Accept a document at the highest quality tier it reaches",
	Long: `Progressive validation tries the High, Medium and Basic tiers in order
and accepts the document at the first one it meets. Content accepted below
High gets a quality notice; content that meets no tier is kept as Fallback
with a warning block listing what to fix.

Example:
  docgate progressive docs/guide.md
  docgate progressive docs/guide.md --write docs/guide.md`,
	Args: cobra.ExactArgs(1),
	RunE: runProgressive,
}

// partialCmd represents the partial command
var partialCmd = &cobra.Command{
	Use:   "partial <file>",
	Short: "Keep only the sections of a document that pass on their own",
	Long: `Partial validation runs progressive validation on the whole document.
When nothing is accepted it splits the document at ## headers, validates
every section independently and assembles the passing ones with a notice
listing what was excluded.

Example:
  docgate partial docs/handbook.md
  docgate partial docs/handbook.md --force-split --write out/handbook.md`,
	Args: cobra.ExactArgs(1),
	RunE: runPartial,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(progressiveCmd)
	rootCmd.AddCommand(partialCmd)

	for _, cmd := range []*cobra.Command{validateCmd, progressiveCmd, partialCmd} {
		cmd.Flags().StringVar(&projectRoot, "root", "", "project root for reference checks (default: nearest .git, go.mod, package.json, pyproject.toml or Cargo.toml)")
		cmd.Flags().StringVar(&jsonOut, "json", "", "write the full result as JSON to this path")
	}

	validateCmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum overall score (default: quality.min_score)")

	progressiveCmd.Flags().StringVar(&writeOut, "write", "", "write the returned content to this path (\"-\" for stdout)")
	partialCmd.Flags().StringVar(&writeOut, "write", "", "write the returned content to this path (\"-\" for stdout)")
	partialCmd.Flags().BoolVar(&forceSplit, "force-split", false, "split into sections even when the whole document is accepted")
}

// document is a Markdown file loaded for validation
type document struct {
	path    string
	content string
	root    string
}

// readDocument loads path ("-" for stdin) and resolves its project root
func readDocument(path string) (document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return document{}, fmt.Errorf("read %s: %w", path, err)
	}

	root := projectRoot
	if root == "" {
		root = pipeline.FindProjectRoot(path)
	}
	return document{path: path, content: string(data), root: root}, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	threshold := cfg.Quality.MinScore
	if cmd.Flags().Changed("min-score") {
		threshold = minScore
	}

	logf(cfg, "⚙️  Validating %s (project root %s)...\n", doc.path, doc.root)
	ctx := cmd.Context()
	result := p.Validate(ctx, doc.path, doc.content, doc.root, threshold)

	renderer := pipeline.NewRenderer(cmd.OutOrStdout(), cfg.Output.Color, cfg.Quality.Progressive.Thresholds)
	renderer.RenderResult(result)

	if err := writeJSON(cfg, renderer, result); err != nil {
		return err
	}
	recordRun(ctx, cfg, history.FromResult(result))

	if !result.IsValid {
		return ErrQualityGate
	}
	return nil
}

func runProgressive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	logf(cfg, "⚙️  Running progressive validation on %s...\n", doc.path)
	ctx := cmd.Context()
	outcome := p.ValidateProgressive(ctx, doc.path, doc.content, doc.root)

	renderer := pipeline.NewRenderer(cmd.OutOrStdout(), cfg.Output.Color, cfg.Quality.Progressive.Thresholds)
	if writeOut != "-" {
		renderer.RenderOutcome(doc.path, outcome)
	}

	if err := writeJSON(cfg, renderer, outcome); err != nil {
		return err
	}
	if err := writeContent(cmd, cfg, outcome.Content); err != nil {
		return err
	}
	recordRun(ctx, cfg, history.FromOutcome(doc.path, outcome))
	return nil
}

func runPartial(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	logf(cfg, "⚙️  Running partial validation on %s...\n", doc.path)
	ctx := cmd.Context()
	assembly := p.ValidatePartial(ctx, doc.path, doc.content, doc.root, pipeline.PartialOptions{ForceSplit: forceSplit})

	renderer := pipeline.NewRenderer(cmd.OutOrStdout(), cfg.Output.Color, cfg.Quality.Progressive.Thresholds)
	if writeOut != "-" {
		renderer.RenderPartial(doc.path, assembly)
	}

	if err := writeJSON(cfg, renderer, assembly); err != nil {
		return err
	}
	if err := writeContent(cmd, cfg, assembly.Content); err != nil {
		return err
	}
	recordRun(ctx, cfg, history.FromAssembly(doc.path, assembly))
	return nil
}

func writeJSON(cfg *model.Config, renderer *pipeline.Renderer, v any) error {
	if jsonOut == "" {
		return nil
	}
	if err := renderer.RenderJSON(v, jsonOut); err != nil {
		return err
	}
	logf(cfg, "✓ JSON report: %s\n", jsonOut)
	return nil
}

// writeContent saves the content returned by progressive or partial
// validation when --write is set
func writeContent(cmd *cobra.Command, cfg *model.Config, content string) error {
	switch writeOut {
	case "":
		return nil
	case "-":
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}

	if err := os.WriteFile(writeOut, []byte(content), 0644); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	logf(cfg, "✓ Content written: %s\n", writeOut)
	return nil
}

// recordRun stores a run in the history database when history is enabled.
// History failures never fail the command.
func recordRun(ctx context.Context, cfg *model.Config, run history.Run) {
	store, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return
	}
	if store == nil {
		return
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Record(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
