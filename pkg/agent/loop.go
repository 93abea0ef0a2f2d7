// Package agent implements the core control structure: the step-by-step loop
// that queries the model for its next action, dispatches requested tool calls
// through the registry, feeds results back into the conversation, and
// terminates on completion, budget exhaustion, or unrecoverable failure.
package agent

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bookforge/bookforge/pkg/logger"
	"github.com/bookforge/bookforge/pkg/tools"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
)

// State is the agent loop's current position in its cycle.
type State string

// Loop states
const (
	StateAwaitingModel    State = "AWAITING_MODEL"
	StateDispatchingTools State = "DISPATCHING_TOOLS"
	StateCompleted        State = "COMPLETED"
	StateFailed           State = "FAILED"
)

// stepOutcome is what one full step (model call plus tool dispatches)
// produced.
type stepOutcome struct {
	state   State
	summary string // populated when finish_task completed the session
	err     error  // populated when the step failed
}

// step runs one complete round: ask the model, dispatch any tool calls in
// order, and append everything to the conversation. The step fully completes
// before the next one begins; there is no overlap between steps.
func (s *Supervisor) step(ctx context.Context, conv *llmtypes.Conversation, usage *llmtypes.Usage) stepOutcome {
	log := logger.G(ctx)

	log.WithField("state", StateAwaitingModel).Debug("querying model")
	mctx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	response, err := s.client.Complete(mctx, conv, s.specs)
	cancel()
	if err != nil {
		// Retryable failures were already exhausted inside the client
		// boundary; whatever reaches this point is terminal.
		return stepOutcome{state: StateFailed, err: errors.Wrap(err, "model call failed")}
	}

	usage.Add(response.Usage)

	assistantMsg := llmtypes.Message{
		Role:      llmtypes.RoleAssistant,
		Content:   response.Content,
		ToolCalls: ensureCallIDs(response.ToolCalls),
	}
	conv.Append(assistantMsg)

	if response.Content != "" {
		s.handler.HandleText(response.Content)
	}

	// A free-text answer is not a completion signal: only finish_task is
	// authoritative, so a model that thinks out loud keeps going.
	if len(assistantMsg.ToolCalls) == 0 {
		return stepOutcome{state: StateAwaitingModel}
	}

	return s.dispatchToolCalls(ctx, conv, assistantMsg.ToolCalls)
}

// dispatchToolCalls runs the requested calls in the order the model returned
// them. Invoking finish_task completes the session and short-circuits any
// remaining calls in the batch: at most one completion per step, ties broken
// by request order.
func (s *Supervisor) dispatchToolCalls(ctx context.Context, conv *llmtypes.Conversation, calls []llmtypes.ToolCall) stepOutcome {
	log := logger.G(ctx)
	log.WithField("state", StateDispatchingTools).WithField("count", len(calls)).Debug("dispatching tool calls")

	for _, call := range calls {
		s.handler.HandleToolUse(call.Name, call.Arguments)

		tctx, cancel := context.WithTimeout(ctx, s.cfg.ToolTimeout)
		result := s.registry.Dispatch(tctx, s.state, call)
		cancel()

		s.handler.HandleToolResult(call.Name, result.AssistantFacing())
		conv.Append(llmtypes.Message{
			Role:       llmtypes.RoleTool,
			Content:    result.AssistantFacing(),
			ToolCallID: call.ID,
			IsError:    result.IsError(),
		})

		if call.Name == tools.FinishTaskToolName && !result.IsError() {
			return stepOutcome{state: StateCompleted, summary: result.Result}
		}

		if result.IsError() {
			// Tool faults are fed back for the model to self-correct, but a
			// workspace root that vanished is session-fatal: tools cannot
			// safely retry state they cannot observe.
			if _, statErr := os.Stat(s.state.WorkspaceRoot()); statErr != nil {
				return stepOutcome{state: StateFailed, err: errors.Wrap(statErr, "workspace became unavailable")}
			}
		}
	}

	return stepOutcome{state: StateAwaitingModel}
}

// ensureCallIDs backfills call identifiers for providers that omit them, so
// every tool result can be paired with its originating request.
func ensureCallIDs(calls []llmtypes.ToolCall) []llmtypes.ToolCall {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}
	return calls
}
