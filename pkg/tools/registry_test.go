package tools

import (
	"context"
	"testing"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// fakeTool is a configurable tool for registry tests.
type fakeTool struct {
	name    string
	execute func(ctx context.Context) tooltypes.ToolResult
}

func (f *fakeTool) Name() string                    { return f.name }
func (f *fakeTool) Description() string             { return "fake tool for tests" }
func (f *fakeTool) GenerateSchema() *jsonschema.Schema { return GenerateSchema[struct{}]() }
func (f *fakeTool) ValidateInput(state tooltypes.State, parameters string) error {
	return nil
}
func (f *fakeTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	if f.execute != nil {
		return f.execute(ctx)
	}
	return tooltypes.ToolResult{Result: "ok"}
}

func TestRegistryRegister(t *testing.T) {
	t.Run("duplicate name rejected", func(t *testing.T) {
		first := &fakeTool{name: "echo", execute: func(context.Context) tooltypes.ToolResult {
			return tooltypes.ToolResult{Result: "first"}
		}}
		second := &fakeTool{name: "echo", execute: func(context.Context) tooltypes.ToolResult {
			return tooltypes.ToolResult{Result: "second"}
		}}

		registry, err := NewRegistry(first)
		require.NoError(t, err)

		err = registry.Register(second)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateTool))

		// Prior mapping must be untouched.
		state, _ := newTestState(t)
		result := registry.Dispatch(context.Background(), state, llmtypes.ToolCall{ID: "c1", Name: "echo", Arguments: "{}"})
		assert.Equal(t, "first", result.Result)
	})

	t.Run("registration order preserved in specs", func(t *testing.T) {
		registry, err := NewRegistry(
			&fakeTool{name: "alpha"},
			&fakeTool{name: "beta"},
			&fakeTool{name: "gamma"},
		)
		require.NoError(t, err)

		specs := registry.Specs()
		require.Len(t, specs, 3)
		assert.Equal(t, "alpha", specs[0].Name)
		assert.Equal(t, "beta", specs[1].Name)
		assert.Equal(t, "gamma", specs[2].Name)
		assert.NotNil(t, specs[0].Schema)
	})
}

func TestRegistryDispatch(t *testing.T) {
	state, _ := newTestState(t)

	t.Run("unknown tool fails closed", func(t *testing.T) {
		registry, err := NewRegistry(&fakeTool{name: "echo"})
		require.NoError(t, err)

		result := registry.Dispatch(context.Background(), state, llmtypes.ToolCall{ID: "c1", Name: "nope", Arguments: "{}"})
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, `unknown tool "nope"`)
	})

	t.Run("validation failure becomes error result", func(t *testing.T) {
		registry := DefaultRegistry()

		result := registry.Dispatch(context.Background(), state, llmtypes.ToolCall{ID: "c1", Name: "read_file", Arguments: `{"path": ""}`})
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "path is required")
	})

	t.Run("panicking tool becomes error result", func(t *testing.T) {
		registry, err := NewRegistry(&fakeTool{name: "boom", execute: func(context.Context) tooltypes.ToolResult {
			panic("kaboom")
		}})
		require.NoError(t, err)

		result := registry.Dispatch(context.Background(), state, llmtypes.ToolCall{ID: "c1", Name: "boom", Arguments: "{}"})
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "kaboom")
	})

	t.Run("deadline produces error result instead of hanging", func(t *testing.T) {
		blocked := make(chan struct{})
		registry, err := NewRegistry(&fakeTool{name: "slow", execute: func(ctx context.Context) tooltypes.ToolResult {
			<-blocked
			return tooltypes.ToolResult{Result: "too late"}
		}})
		require.NoError(t, err)
		defer close(blocked)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		result := registry.Dispatch(ctx, state, llmtypes.ToolCall{ID: "c1", Name: "slow", Arguments: "{}"})
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "did not complete")
	})
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	specs := registry.Specs()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}

	assert.Equal(t, []string{"read_file", "write_file", "list_directory", "search_text", "finish_task"}, names)
}
