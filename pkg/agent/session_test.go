package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/llm"
	"github.com/bookforge/bookforge/pkg/tools"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// stubTurn is one scripted model exchange.
type stubTurn struct {
	response llmtypes.ModelResponse
	err      error
}

// stubModel replays scripted turns in order, repeating the last one when the
// script runs out.
type stubModel struct {
	turns []stubTurn
	calls int
}

func (m *stubModel) Complete(ctx context.Context, conversation *llmtypes.Conversation, specs []tooltypes.ToolSpec) (llmtypes.ModelResponse, error) {
	idx := m.calls
	if idx >= len(m.turns) {
		idx = len(m.turns) - 1
	}
	m.calls++

	turn := m.turns[idx]
	return turn.response, turn.err
}

func textTurn(text string) stubTurn {
	return stubTurn{response: llmtypes.ModelResponse{Content: text}}
}

func toolTurn(calls ...llmtypes.ToolCall) stubTurn {
	return stubTurn{response: llmtypes.ModelResponse{ToolCalls: calls}}
}

func finishCall(id, summary string) llmtypes.ToolCall {
	return llmtypes.ToolCall{ID: id, Name: "finish_task", Arguments: fmt.Sprintf(`{"summary": %q}`, summary)}
}

func newTestSupervisor(t *testing.T, client llm.Client, budget int) (*Supervisor, string) {
	t.Helper()

	workspace := t.TempDir()
	state, err := tools.NewBasicState(workspace)
	require.NoError(t, err)

	cfg := &config.Config{
		StepBudget:   budget,
		ModelTimeout: 30 * time.Second,
		ToolTimeout:  30 * time.Second,
	}

	supervisor := NewSupervisor(cfg, client, tools.DefaultRegistry(), state, nil)
	return supervisor, state.WorkspaceRoot()
}

func TestRunBudgetExhaustion(t *testing.T) {
	// A model that only ever talks must be stopped by the budget: with
	// budget = 3 exactly 3 model calls happen, never a 4th.
	model := &stubModel{turns: []stubTurn{textTurn("still thinking out loud")}}
	supervisor, _ := newTestSupervisor(t, model, 3)

	result := supervisor.Run(context.Background(), "system", "task")

	assert.Equal(t, ReasonBudgetExhausted, result.Reason)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, 3, model.calls)
	assert.Empty(t, result.Summary)
}

func TestRunFreeTextIsNotCompletion(t *testing.T) {
	// "I am done now" as plain text must not terminate the session; only
	// finish_task is authoritative.
	model := &stubModel{turns: []stubTurn{
		textTurn("I am done now."),
		toolTurn(finishCall("c1", "actually done")),
	}}
	supervisor, _ := newTestSupervisor(t, model, 10)

	result := supervisor.Run(context.Background(), "system", "task")

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, "actually done", result.Summary)
	assert.Equal(t, 2, model.calls)
}

func TestRunFinishTaskShortCircuitsBatch(t *testing.T) {
	supervisor, workspace := newTestSupervisor(t, nil, 10)

	model := &stubModel{turns: []stubTurn{
		toolTurn(
			llmtypes.ToolCall{ID: "c1", Name: "write_file", Arguments: `{"path": "before.txt", "text": "written"}`},
			finishCall("c2", "all wrapped up"),
			llmtypes.ToolCall{ID: "c3", Name: "write_file", Arguments: `{"path": "after.txt", "text": "must not exist"}`},
		),
	}}
	supervisor.client = model

	result := supervisor.Run(context.Background(), "system", "task")

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, "all wrapped up", result.Summary)

	// The call before finish_task ran; the one after was short-circuited.
	_, err := os.Stat(filepath.Join(workspace, "before.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(workspace, "after.txt"))
	assert.True(t, os.IsNotExist(err))

	// Tool results exist for c1 and c2 only.
	ids := toolResultIDs(result.Conversation)
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestRunToolResultPairing(t *testing.T) {
	model := &stubModel{turns: []stubTurn{
		toolTurn(
			llmtypes.ToolCall{ID: "a1", Name: "list_directory", Arguments: `{}`},
			llmtypes.ToolCall{ID: "a2", Name: "read_file", Arguments: `{"path": "missing.txt"}`},
		),
		toolTurn(finishCall("a3", "done")),
	}}
	supervisor, _ := newTestSupervisor(t, model, 10)

	result := supervisor.Run(context.Background(), "system", "task")
	require.Equal(t, ReasonCompleted, result.Reason)

	// Every tool result pairs with exactly one issued call, in order.
	requested := map[string]int{}
	answered := map[string]int{}
	for _, msg := range result.Conversation.Messages() {
		switch msg.Role {
		case llmtypes.RoleAssistant:
			for _, call := range msg.ToolCalls {
				requested[call.ID]++
			}
		case llmtypes.RoleTool:
			answered[msg.ToolCallID]++
		}
	}
	assert.Equal(t, requested, answered)
	for id, n := range answered {
		assert.Equal(t, 1, n, "call %s answered %d times", id, n)
	}
}

func TestRunUnknownToolIsRecoverable(t *testing.T) {
	// An unregistered tool name produces an error result the model can see
	// and recover from, never a crash.
	model := &stubModel{turns: []stubTurn{
		toolTurn(llmtypes.ToolCall{ID: "c1", Name: "launch_missiles", Arguments: `{}`}),
		toolTurn(finishCall("c2", "recovered")),
	}}
	supervisor, _ := newTestSupervisor(t, model, 10)

	result := supervisor.Run(context.Background(), "system", "task")

	assert.Equal(t, ReasonCompleted, result.Reason)

	var errResult string
	for _, msg := range result.Conversation.Messages() {
		if msg.Role == llmtypes.RoleTool && msg.ToolCallID == "c1" {
			errResult = msg.Content
			assert.True(t, msg.IsError)
		}
	}
	assert.Contains(t, errResult, "unknown tool")
}

func TestRunModelFailure(t *testing.T) {
	t.Run("fatal error fails the session", func(t *testing.T) {
		model := &stubModel{turns: []stubTurn{
			{err: llmtypes.NewFatalError(errors.New("invalid api key"))},
		}}
		supervisor, _ := newTestSupervisor(t, model, 10)

		result := supervisor.Run(context.Background(), "system", "task")

		assert.Equal(t, ReasonFailed, result.Reason)
		require.Error(t, result.Err)
		assert.Contains(t, result.Err.Error(), "invalid api key")
	})

	t.Run("transient failures within retry limit recover", func(t *testing.T) {
		transient := llmtypes.NewRetryableError(errors.New("rate limited"))
		model := &stubModel{turns: []stubTurn{
			{err: transient},
			{err: transient},
			{err: transient},
			toolTurn(finishCall("c1", "made it")),
		}}
		retryCfg := config.RetryConfig{Attempts: 4, InitialDelay: 1, MaxDelay: 2, BackoffType: "fixed"}

		supervisor, _ := newTestSupervisor(t, llm.WithRetry(model, retryCfg), 10)

		result := supervisor.Run(context.Background(), "system", "task")

		assert.Equal(t, ReasonCompleted, result.Reason)
		assert.Equal(t, "made it", result.Summary)
		assert.Equal(t, 4, model.calls)
		// Retries happen inside the client boundary, within one step.
		assert.Equal(t, 1, result.Steps)
	})

	t.Run("transient failures beyond retry limit fail", func(t *testing.T) {
		transient := llmtypes.NewRetryableError(errors.New("rate limited"))
		model := &stubModel{turns: []stubTurn{{err: transient}}}
		retryCfg := config.RetryConfig{Attempts: 3, InitialDelay: 1, MaxDelay: 2, BackoffType: "fixed"}

		supervisor, _ := newTestSupervisor(t, llm.WithRetry(model, retryCfg), 10)

		result := supervisor.Run(context.Background(), "system", "task")

		assert.Equal(t, ReasonFailed, result.Reason)
		assert.Equal(t, 3, model.calls)
	})
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &stubModel{turns: []stubTurn{textTurn("never reached")}}
	supervisor, _ := newTestSupervisor(t, model, 10)

	result := supervisor.Run(ctx, "system", "task")

	assert.Equal(t, ReasonFailed, result.Reason)
	assert.Equal(t, 0, model.calls)
}

func TestRunRoundTrip(t *testing.T) {
	// The full produce-a-skill scenario: read a library document, write the
	// skill file, finish with a summary.
	supervisor, workspace := newTestSupervisor(t, nil, 10)

	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "library"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(workspace, "library", "sample.txt"),
		[]byte("Testing is about confidence, not proof.\n"),
		0o644,
	))

	model := &stubModel{turns: []stubTurn{
		toolTurn(llmtypes.ToolCall{ID: "r1", Name: "read_file", Arguments: `{"path": "library/sample.txt"}`}),
		toolTurn(llmtypes.ToolCall{ID: "w1", Name: "write_file", Arguments: `{"path": "produced_skill/sample/SKILL.md", "text": "# Sample\n\nTesting is about confidence.\n"}`}),
		toolTurn(finishCall("f1", "produced skill package for sample.txt")),
	}}
	supervisor.client = model

	result := supervisor.Run(context.Background(), "system", "summarize library/sample.txt into produced_skill/sample/SKILL.md")

	require.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, "produced skill package for sample.txt", result.Summary)
	assert.Equal(t, 3, result.Steps)

	written, err := os.ReadFile(filepath.Join(workspace, "produced_skill", "sample", "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Sample\n\nTesting is about confidence.\n", string(written))

	// The read result made it into the transcript for the model to see.
	var readResult string
	for _, msg := range result.Conversation.Messages() {
		if msg.Role == llmtypes.RoleTool && msg.ToolCallID == "r1" {
			readResult = msg.Content
		}
	}
	assert.Contains(t, readResult, "Testing is about confidence")
}

func TestRunConversationSeeding(t *testing.T) {
	model := &stubModel{turns: []stubTurn{toolTurn(finishCall("c1", "done"))}}
	supervisor, _ := newTestSupervisor(t, model, 5)

	result := supervisor.Run(context.Background(), "you are a skill factory", "produce skills")

	msgs := result.Conversation.Messages()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, llmtypes.RoleSystem, msgs[0].Role)
	assert.Equal(t, "you are a skill factory", msgs[0].Content)
	assert.Equal(t, llmtypes.RoleUser, msgs[1].Role)
	assert.Equal(t, "produce skills", msgs[1].Content)
}

func TestRunCollectsAssistantText(t *testing.T) {
	// A silent collector still captures everything the model said, so the
	// CLI can report it after the session without re-reading the transcript.
	model := &stubModel{turns: []stubTurn{
		textTurn("reading the library first"),
		textTurn("now writing the skill"),
		toolTurn(finishCall("c1", "done")),
	}}

	workspace := t.TempDir()
	state, err := tools.NewBasicState(workspace)
	require.NoError(t, err)
	cfg := &config.Config{
		StepBudget:   10,
		ModelTimeout: 30 * time.Second,
		ToolTimeout:  30 * time.Second,
	}

	collector := &llmtypes.StringCollectorHandler{Silent: true}
	supervisor := NewSupervisor(cfg, model, tools.DefaultRegistry(), state, collector)

	result := supervisor.Run(context.Background(), "system", "task")

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Contains(t, collector.CollectedText(), "reading the library first")
	assert.Contains(t, collector.CollectedText(), "now writing the skill")
	assert.Equal(t, "now writing the skill", result.Conversation.LastAssistantText())
}

func TestRunAnnotatesSessionSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	model := &stubModel{turns: []stubTurn{toolTurn(finishCall("c1", "done"))}}
	supervisor, _ := newTestSupervisor(t, model, 5)

	result := supervisor.Run(context.Background(), "system", "task")
	require.Equal(t, ReasonCompleted, result.Reason)

	var session sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "agent.session" {
			session = span
		}
	}
	require.NotNil(t, session)
	assert.Contains(t, session.Attributes(), attribute.String("session.reason", "completed"))
	assert.Contains(t, session.Attributes(), attribute.Int("session.steps", 1))
}

func toolResultIDs(conv *llmtypes.Conversation) []string {
	var ids []string
	for _, msg := range conv.Messages() {
		if msg.Role == llmtypes.RoleTool {
			ids = append(ids, msg.ToolCallID)
		}
	}
	return ids
}
