package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
	"github.com/bookforge/bookforge/pkg/utils"
)

// FileWriteTool materializes skill package files inside the workspace.
type FileWriteTool struct{}

// FileWriteInput defines the input parameters for the write_file tool
type FileWriteInput struct {
	Path string `json:"path" jsonschema:"description=The path of the file to write relative to the workspace root,required"`
	Text string `json:"text" jsonschema:"description=The full text content of the file,required"`
}

func (t *FileWriteTool) Name() string {
	return "write_file"
}

func (t *FileWriteTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[FileWriteInput]()
}

func (t *FileWriteTool) Description() string {
	return `Writes a file with the given text. If the file already exists, its content is overwritten.

This tool takes two parameters:
- path: The path of the file to write, relative to the workspace root
- text: The text to write. It must not be empty.

Parent directories are created as needed, so writing produced_skill/testing/unit-testing/SKILL.md works without listing or creating the directories first.
Files are created with 0644 permissions.
`
}

func (t *FileWriteTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input FileWriteInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Path == "" {
		return errors.New("path is required")
	}
	if input.Text == "" {
		return errors.New("text is required")
	}

	return nil
}

func (t *FileWriteTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	var input FileWriteInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	path, err := state.ResolvePath(input.Path)
	if err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return tooltypes.ToolResult{Error: fmt.Sprintf("%s is a directory", input.Path)}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tooltypes.ToolResult{Error: fmt.Sprintf("failed to create parent directories: %s", err.Error())}
	}

	if err := os.WriteFile(path, []byte(input.Text), 0o644); err != nil {
		return tooltypes.ToolResult{Error: fmt.Sprintf("failed to write file: %s", err.Error())}
	}

	lines := strings.Split(input.Text, "\n")
	return tooltypes.ToolResult{
		Result: fmt.Sprintf("file %s has been written successfully\n\n%s", input.Path, utils.ContentWithLineNumber(lines, 0)),
	}
}
