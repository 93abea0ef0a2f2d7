package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// MaxListEntries caps directory listings to keep output bounded.
const MaxListEntries = 500

// ListDirectoryTool lists workspace directory contents.
type ListDirectoryTool struct{}

// ListDirectoryInput defines the input parameters for the list_directory tool
type ListDirectoryInput struct {
	Path    string `json:"path" jsonschema:"description=The directory to list relative to the workspace root,default=."`
	Pattern string `json:"pattern" jsonschema:"description=Optional glob pattern to filter entries e.g. *.md or **/*.txt"`
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ListDirectoryInput]()
}

func (t *ListDirectoryTool) Description() string {
	return `Lists the entries of a workspace directory. Directories are suffixed with "/".

This tool takes two parameters:
- path: The directory to list, relative to the workspace root (default: the root itself)
- pattern: Optional glob pattern to filter entries, e.g. "*.md" or "**/*.txt"

When a "**" pattern is given the directory is walked recursively and matches are reported with their paths relative to the listed directory.
`
}

func (t *ListDirectoryTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input ListDirectoryInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Pattern != "" && !doublestar.ValidatePattern(input.Pattern) {
		return errors.Errorf("invalid glob pattern %q", input.Pattern)
	}

	return nil
}

func (t *ListDirectoryTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	var input ListDirectoryInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}
	if input.Path == "" {
		input.Path = "."
	}

	dir, err := state.ResolvePath(input.Path)
	if err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	var names []string
	if strings.Contains(input.Pattern, "**") {
		matches, err := doublestar.Glob(os.DirFS(dir), input.Pattern)
		if err != nil {
			return tooltypes.ToolResult{Error: fmt.Sprintf("failed to glob directory: %s", err.Error())}
		}
		names = matches
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return tooltypes.ToolResult{Error: fmt.Sprintf("failed to read directory: %s", err.Error())}
		}
		for _, entry := range entries {
			name := entry.Name()
			if input.Pattern != "" {
				matched, _ := doublestar.Match(input.Pattern, name)
				if !matched {
					continue
				}
			}
			if entry.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
	}

	sort.Strings(names)

	if len(names) == 0 {
		return tooltypes.ToolResult{Result: fmt.Sprintf("directory %s has no matching entries", input.Path)}
	}
	truncated := false
	if len(names) > MaxListEntries {
		names = names[:MaxListEntries]
		truncated = true
	}

	result := strings.Join(names, "\n")
	if truncated {
		result += fmt.Sprintf("\n... [truncated at %d entries]", MaxListEntries)
	}

	return tooltypes.ToolResult{Result: result}
}
