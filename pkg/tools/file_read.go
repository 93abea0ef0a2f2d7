package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
	"github.com/bookforge/bookforge/pkg/utils"
)

const (
	// MaxOutputBytes caps tool output so one large file cannot flood the
	// model's context.
	MaxOutputBytes = 100_000 // 100KB
)

// FileReadTool reads a document from the workspace.
type FileReadTool struct{}

// FileReadInput defines the input parameters for the read_file tool
type FileReadInput struct {
	Path   string `json:"path" jsonschema:"description=The path of the file to read relative to the workspace root,required"`
	Offset int    `json:"offset" jsonschema:"description=The 0-indexed line number to start reading from,default=0"`
}

func (t *FileReadTool) Name() string {
	return "read_file"
}

func (t *FileReadTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[FileReadInput]()
}

func (t *FileReadTool) Description() string {
	return `Reads a file from the workspace and returns its contents with line numbers.

This tool takes two parameters:
- path: The path of the file to read, relative to the workspace root
- offset: The 0-indexed line number to start reading from (default: 0)

Non-zero offset is recommended for reading large files in chunks.

The result includes line numbers padded appropriately, followed by the content of each line:

---

  0: The Pragmatic Programmer
  1: Chapter 1
...

---
`
}

func (t *FileReadTool) ValidateInput(state tooltypes.State, parameters string) error {
	input := &FileReadInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Path == "" {
		return errors.New("path is required")
	}
	if input.Offset < 0 {
		return errors.New("offset must be a non-negative integer")
	}

	return nil
}

func (t *FileReadTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	input := &FileReadInput{}
	if err := json.Unmarshal([]byte(parameters), input); err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	path, err := state.ResolvePath(input.Path)
	if err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	if utils.IsBinaryFile(path) {
		return tooltypes.ToolResult{Error: fmt.Sprintf("file %s appears to be binary and cannot be read as text", input.Path)}
	}

	file, err := os.Open(path)
	if err != nil {
		return tooltypes.ToolResult{Error: fmt.Sprintf("failed to open file: %s", err.Error())}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxOutputBytes)

	lineCount := 0
	for lineCount < input.Offset && scanner.Scan() {
		lineCount++
	}
	if lineCount < input.Offset {
		return tooltypes.ToolResult{
			Error: fmt.Sprintf("file has only %d lines, which is less than the requested offset %d", lineCount, input.Offset),
		}
	}

	var lines []string
	bytesRead := 0
	truncated := false
	for scanner.Scan() {
		line := scanner.Text()
		bytesRead += len(line) + 1
		if bytesRead > MaxOutputBytes {
			truncated = true
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return tooltypes.ToolResult{Error: fmt.Sprintf("error reading file: %s", err.Error())}
	}

	result := utils.ContentWithLineNumber(lines, input.Offset)
	if truncated {
		result += fmt.Sprintf("\n... [truncated due to max output bytes limit of %d]", MaxOutputBytes)
	}

	return tooltypes.ToolResult{Result: result}
}
