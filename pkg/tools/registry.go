// Package tools provides the tool execution framework: the registry that maps
// tool names to implementations, the workspace-scoped state, and the built-in
// tools the agent may invoke.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookforge/bookforge/pkg/telemetry"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// ErrDuplicateTool is returned when registering a tool under a name that is
// already taken.
var ErrDuplicateTool = errors.New("tool already registered")

var tracer = telemetry.Tracer("bookforge.tools")

// GenerateSchema reflects a JSON schema from a tool input struct.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// Registry maps tool names to implementations. It is populated at startup and
// read-only afterwards, so it is safe to share across concurrent sessions.
type Registry struct {
	tools map[string]tooltypes.Tool
	order []string
}

// NewRegistry creates a registry pre-populated with the given tools.
func NewRegistry(toolList ...tooltypes.Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]tooltypes.Tool)}
	for _, tool := range toolList {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the standard tool set.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		&FileReadTool{},
		&FileWriteTool{},
		&ListDirectoryTool{},
		&SearchTextTool{},
		&FinishTaskTool{},
	)
	if err != nil {
		// The built-in tool set has unique names; reaching this is a bug.
		panic(err)
	}
	return r
}

// Register adds a tool under its name. Registering a name twice fails with
// ErrDuplicateTool and leaves the existing mapping unchanged.
func (r *Registry) Register(tool tooltypes.Tool) error {
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return errors.Wrap(ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Specs returns the registered tool specs in registration order. The result
// is handed verbatim to the model client each step.
func (r *Registry) Specs() []tooltypes.ToolSpec {
	specs := make([]tooltypes.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		specs = append(specs, tooltypes.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.GenerateSchema(),
		})
	}
	return specs
}

// Dispatch executes one tool call. It fails closed: an unknown tool name,
// invalid input, execution fault, or timeout all come back as an error
// ToolResult, never as a panic or an error that could tear down the loop.
func (r *Registry) Dispatch(ctx context.Context, state tooltypes.State, call llmtypes.ToolCall) (result tooltypes.ToolResult) {
	ctx, span := tracer.Start(
		ctx,
		fmt.Sprintf("tools.dispatch.%s", call.Name),
		trace.WithAttributes(
			attribute.String("tool.name", call.Name),
			attribute.String("tool.call_id", call.ID),
		),
	)
	defer span.End()
	defer func() {
		if result.IsError() {
			span.SetStatus(codes.Error, result.Error)
			span.RecordError(errors.New(result.Error))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	tool, exists := r.tools[call.Name]
	if !exists {
		return tooltypes.ToolResult{
			Error: fmt.Sprintf("unknown tool %q: available tools are %v", call.Name, r.order),
		}
	}

	if err := tool.ValidateInput(state, call.Arguments); err != nil {
		return tooltypes.ToolResult{
			Error: errors.Wrapf(err, "invalid input for tool %q", call.Name).Error(),
		}
	}

	return runWithDeadline(ctx, tool, state, call)
}

// runWithDeadline executes the tool and honors the context deadline so a
// hung tool cannot stall the loop. The tool goroutine is left to run to
// completion; only the result is abandoned.
func runWithDeadline(ctx context.Context, tool tooltypes.Tool, state tooltypes.State, call llmtypes.ToolCall) tooltypes.ToolResult {
	resultCh := make(chan tooltypes.ToolResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- tooltypes.ToolResult{
					Error: fmt.Sprintf("tool %q panicked: %v", call.Name, rec),
				}
			}
		}()
		resultCh <- tool.Execute(ctx, state, call.Arguments)
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return tooltypes.ToolResult{
			Error: fmt.Sprintf("tool %q did not complete: %v", call.Name, ctx.Err()),
		}
	}
}
