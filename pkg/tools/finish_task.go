package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// FinishTaskToolName is matched by the agent loop to detect authoritative
// completion. Free-form assistant text never terminates a session; only
// invoking this tool does.
const FinishTaskToolName = "finish_task"

// FinishTaskTool is a sentinel with no filesystem effect. Its invocation
// signals successful completion and carries a human-readable summary.
type FinishTaskTool struct{}

// FinishTaskInput defines the input parameters for the finish_task tool
type FinishTaskInput struct {
	Summary string `json:"summary" jsonschema:"description=A human-readable summary of what was produced,required"`
}

func (t *FinishTaskTool) Name() string {
	return FinishTaskToolName
}

func (t *FinishTaskTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[FinishTaskInput]()
}

func (t *FinishTaskTool) Description() string {
	return `Signals that the task is complete. Call this tool exactly once, after all skill package files have been written.

This tool takes one parameter:
- summary: A human-readable summary of the skill packages that were produced

Calling this tool ends the session. Do not call it before the output files exist.
`
}

func (t *FinishTaskTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input FinishTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Summary == "" {
		return errors.New("summary is required")
	}

	return nil
}

func (t *FinishTaskTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	var input FinishTaskInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	return tooltypes.ToolResult{Result: input.Summary}
}
