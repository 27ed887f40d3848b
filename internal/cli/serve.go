package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/mcpserver"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Serve exposes validation as MCP tools over stdin/stdout so AI coding
tools can check documentation before saving it:
- docgate_validate
- docgate_progressive
- docgate_partial

Logs go to stderr; stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.SetOutput(cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Printf("[docgate] WARNING: run history disabled: %v", err)
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	log.Printf("[docgate] MCP server v%s starting on stdio", Version)
	return mcpserver.Serve(mcpserver.New(p, store, Version))
}
