package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/docgate/internal/model"
)

// FileValidator validates a single documentation file
type FileValidator interface {
	ValidateFile(ctx context.Context, path string) (*model.DetailedValidationResult, error)
}

// FileJob represents a file validation job
type FileJob struct {
	Path      string
	Validator FileValidator
}

// Execute executes the validation job
func (j *FileJob) Execute(ctx context.Context) Result {
	report, err := j.Validator.ValidateFile(ctx, j.Path)
	if err != nil {
		return &FileResult{Path: j.Path, Error: err}
	}
	return &FileResult{Path: j.Path, Report: report}
}

// FileResult represents the result of a file validation job
type FileResult struct {
	Path   string
	Report *model.DetailedValidationResult
	Error  error
}

// GetError returns the error from the validation result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchProcessor validates many files concurrently
type BatchProcessor struct {
	validator   FileValidator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(validator FileValidator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		validator:   validator,
		concurrency: concurrency,
	}
}

// ProcessFiles validates files concurrently; results keep the input order
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	jobs := make([]Job, len(paths))
	for i, p := range paths {
		jobs[i] = &FileJob{Path: p, Validator: b.validator}
	}

	results := NewPool(b.concurrency).Run(ctx, jobs)

	fileResults := make([]*FileResult, len(results))
	for i, result := range results {
		fileResults[i] = result.(*FileResult)
	}

	return fileResults
}

// ReadPathsFromFile reads file paths from a file (one per line)
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
