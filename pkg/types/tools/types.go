// Package tools defines the shared tool contract: the Tool interface every
// capability implements, the ToolResult envelope fed back to the model, and
// the workspace State tools execute against.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is a named, schema-described capability the model may invoke. Execute
// must never panic; faults are reported through the ToolResult error field so
// one bad call cannot take down the agent loop.
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	ValidateInput(state State, parameters string) error
	Execute(ctx context.Context, state State, parameters string) ToolResult
}

// ToolResult is the outcome of one tool execution. Exactly one of Result or
// Error is meaningful; an empty Error means success.
type ToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// IsError reports whether the execution failed.
func (t ToolResult) IsError() bool {
	return t.Error != ""
}

// AssistantFacing returns the representation appended to the conversation for
// the model to read.
func (t ToolResult) AssistantFacing() string {
	out := ""
	if t.Error != "" {
		out = fmt.Sprintf("<error>\n%s\n</error>\n", t.Error)
	}
	if t.Result != "" {
		out += fmt.Sprintf("<result>\n%s\n</result>\n", t.Result)
	}
	return out
}

// State is the workspace-scoped environment tools execute against. All
// file-path arguments must be resolved through ResolvePath, which confines
// them to the workspace root. Paths supplied by the model are untrusted input.
type State interface {
	// WorkspaceRoot returns the absolute workspace root directory.
	WorkspaceRoot() string
	// ResolvePath resolves a tool-supplied path against the workspace root and
	// rejects any path that escapes it, via traversal or an absolute path
	// pointing elsewhere.
	ResolvePath(path string) (string, error)
}

// ToolSpec is the registration-time description of a tool, passed to the
// model client so tool availability always matches registry state.
type ToolSpec struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}
