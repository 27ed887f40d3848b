// Package mcpserver exposes the validation operations as MCP tools over stdio.
//
// Each tool follows the same pattern:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a JSON result
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ppiankov/docgate/internal/history"
	"github.com/ppiankov/docgate/internal/pipeline"
)

// Recorder stores run history; nil disables recording
type Recorder interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
}

// documentArgs are the arguments shared by every tool
type documentArgs struct {
	filePath    string
	content     string
	projectRoot string
}

// readDocument resolves the document text, reading file_path when no
// content is given
func readDocument(req mcp.CallToolRequest) (documentArgs, error) {
	args := documentArgs{
		filePath:    req.GetString("file_path", ""),
		content:     req.GetString("content", ""),
		projectRoot: req.GetString("project_root", ""),
	}
	if args.filePath == "" {
		return args, fmt.Errorf("'file_path' is required")
	}

	if _, ok := req.GetArguments()["content"]; !ok {
		data, err := os.ReadFile(args.filePath)
		if err != nil {
			return args, fmt.Errorf("read %s: %w", args.filePath, err)
		}
		args.content = string(data)
	}
	if args.projectRoot == "" {
		args.projectRoot = pipeline.FindProjectRoot(args.filePath)
	}
	return args, nil
}

func documentOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path of the Markdown document; read from disk when 'content' is omitted"),
		),
		mcp.WithString("content",
			mcp.Description("Document text to validate instead of the file contents"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root used to resolve links, imports and commands (default: nearest directory with go.mod, package.json, pyproject.toml, Cargo.toml or .git)"),
		),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func record(ctx context.Context, r Recorder, run history.Run) {
	if r == nil {
		return
	}
	if _, err := r.Record(ctx, run); err != nil {
		log.Printf("[docgate] WARNING: %v", err)
	}
}

// ValidateTool handles the docgate_validate MCP tool.
type ValidateTool struct {
	pipeline *pipeline.Pipeline
	recorder Recorder
}

// NewValidateTool creates a ValidateTool.
func NewValidateTool(p *pipeline.Pipeline, r Recorder) *ValidateTool {
	return &ValidateTool{pipeline: p, recorder: r}
}

// Definition returns the MCP tool definition for docgate_validate.
func (t *ValidateTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Score a Markdown document on structure, syntax, code examples, cross-references, completeness and readability. "+
				"Returns the overall score, per-category scores, validator errors and warnings, and suggestions.",
		),
	}, documentOptions()...)
	opts = append(opts, mcp.WithNumber("min_score",
		mcp.Description(fmt.Sprintf("Minimum overall score for the document to be valid (default: %v)", t.pipeline.Config().Quality.MinScore)),
	))
	return mcp.NewTool("docgate_validate", opts...)
}

// Handle processes the docgate_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := readDocument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minScore := req.GetFloat("min_score", t.pipeline.Config().Quality.MinScore)

	res := t.pipeline.Validate(ctx, doc.filePath, doc.content, doc.projectRoot, minScore)
	record(ctx, t.recorder, history.FromResult(res))
	return jsonResult(res)
}

// ProgressiveTool handles the docgate_progressive MCP tool.
type ProgressiveTool struct {
	pipeline *pipeline.Pipeline
	recorder Recorder
}

// NewProgressiveTool creates a ProgressiveTool.
func NewProgressiveTool(p *pipeline.Pipeline, r Recorder) *ProgressiveTool {
	return &ProgressiveTool{pipeline: p, recorder: r}
}

// Definition returns the MCP tool definition for docgate_progressive.
func (t *ProgressiveTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Accept a Markdown document at the highest quality tier it meets (High, Medium, Basic). "+
				"Content that meets no tier is still returned, annotated with its top issues and suggested actions.",
		),
	}, documentOptions()...)
	return mcp.NewTool("docgate_progressive", opts...)
}

// Handle processes the docgate_progressive tool call.
func (t *ProgressiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := readDocument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	outcome := t.pipeline.ValidateProgressive(ctx, doc.filePath, doc.content, doc.projectRoot)
	record(ctx, t.recorder, history.FromOutcome(doc.filePath, outcome))
	return jsonResult(outcome)
}

// PartialTool handles the docgate_partial MCP tool.
type PartialTool struct {
	pipeline *pipeline.Pipeline
	recorder Recorder
}

// NewPartialTool creates a PartialTool.
func NewPartialTool(p *pipeline.Pipeline, r Recorder) *PartialTool {
	return &PartialTool{pipeline: p, recorder: r}
}

// Definition returns the MCP tool definition for docgate_partial.
func (t *PartialTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Validate a Markdown document and, when it meets no quality tier, keep only the sections that pass on their own. "+
				"Returns section counts, the assembled content and an 'Excluded Sections' list.",
		),
	}, documentOptions()...)
	opts = append(opts, mcp.WithBoolean("force_split",
		mcp.Description("Validate section by section even when the whole document is accepted (default: false)"),
	))
	return mcp.NewTool("docgate_partial", opts...)
}

// Handle processes the docgate_partial tool call.
func (t *PartialTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := readDocument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := pipeline.PartialOptions{ForceSplit: req.GetBool("force_split", false)}
	assembly := t.pipeline.ValidatePartial(ctx, doc.filePath, doc.content, doc.projectRoot, opts)
	record(ctx, t.recorder, history.FromAssembly(doc.filePath, assembly))
	return jsonResult(assembly)
}
