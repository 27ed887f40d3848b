package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/pipeline"
)

// New creates the MCP server with the three validation tools registered.
// A nil store disables run history.
func New(p *pipeline.Pipeline, store *history.Store, version string) *server.MCPServer {
	var recorder Recorder
	if store != nil {
		recorder = store
	}

	s := server.NewMCPServer(
		"docgate",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	validateTool := NewValidateTool(p, recorder)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	progressiveTool := NewProgressiveTool(p, recorder)
	s.AddTool(progressiveTool.Definition(), progressiveTool.Handle)

	partialTool := NewPartialTool(p, recorder)
	s.AddTool(partialTool.Definition(), partialTool.Handle)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `docgate scores Markdown documentation and decides whether it is good enough to keep.

- docgate_validate: flat score against a minimum, with errors, warnings and suggestions.
- docgate_progressive: accept at High, Medium or Basic tier; otherwise save with a warning block.
- docgate_partial: when nothing is accepted, keep only the sections that pass on their own.

Pass 'content' to validate text that is not on disk yet.`
