package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/docgate/internal/cache"
	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/pipeline"
	"github.com/ppiankov/docgate/internal/snapshot"
)

// Version is set at build time with -ldflags "-X github.com/ppiankov/docgate/internal/cli.Version=..."
var Version = "0.1.0"

// ErrQualityGate is returned when a validated document is below the minimum
var ErrQualityGate = errors.New("documentation did not meet the minimum quality")

var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docgate",
	Short: "docgate - Documentation quality gate with progressive degradation",
	Long: `docgate scores Markdown documentation across six quality categories
(structure, syntax, code examples, cross-references, completeness,
readability) and decides whether it is good enough to keep.

Documents that miss the bar are not thrown away: progressive validation
accepts them at a lower tier, saves them with a warning block, or keeps
only the sections that pass on their own.

Code examples and file references are checked against the project the
document lives in.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, cancelling on interrupt
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of docgate.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docgate v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.docgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".docgate"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// DOCGATE_QUALITY_MIN_SCORE overrides quality.min_score
	viper.SetEnvPrefix("DOCGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of the built-in configuration so that
// environment variables can override keys absent from the config file
func setDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// loadConfig merges defaults, config file, environment and global flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.History.Path = expandHome(cfg.History.Path)
	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.Color = false
	}

	if err := cfg.Quality.Progressive.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// expandHome resolves a leading ~ to the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// newPipeline builds the pipeline with a snapshot provider on the
// configured cache. The provider is returned so callers can invalidate
// project snapshots.
func newPipeline(cfg *model.Config) (*pipeline.Pipeline, *snapshot.Provider, error) {
	var c cache.Cache = cache.Nop{}
	if cfg.Cache.Enabled {
		layered, err := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: disk cache unavailable (%v), using memory only\n", err)
			c = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
		} else {
			c = layered
		}
	}

	provider := snapshot.NewProvider(c, cfg.Cache.DiskTTL, snapshot.Options{MaxFiles: cfg.Snapshot.MaxFiles})
	p, err := pipeline.NewPipeline(cfg, provider)
	if err != nil {
		return nil, nil, err
	}
	return p, provider, nil
}

// openHistory opens the run history when it is enabled; otherwise nil
func openHistory(cfg *model.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(cfg.History.Path)
}

// logf prints a progress line to stderr in verbose mode
func logf(cfg *model.Config, format string, a ...any) {
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}
