package agent

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/llm"
	"github.com/bookforge/bookforge/pkg/logger"
	"github.com/bookforge/bookforge/pkg/telemetry"
	"github.com/bookforge/bookforge/pkg/tools"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// TerminalReason classifies how a session ended.
type TerminalReason string

// Terminal reasons
const (
	ReasonCompleted       TerminalReason = "completed"
	ReasonBudgetExhausted TerminalReason = "budget-exhausted"
	ReasonFailed          TerminalReason = "failed"
)

// SessionResult is the outcome of one supervised run.
type SessionResult struct {
	Reason       TerminalReason
	Summary      string // finish_task payload, set when Reason is ReasonCompleted
	Steps        int
	Conversation *llmtypes.Conversation
	Usage        llmtypes.Usage
	Err          error // last error, set when Reason is ReasonFailed
}

// Supervisor wraps one agent loop execution with step-budget enforcement,
// failure classification, and final status reporting. It owns the
// conversation and session state for the run; the loop is the only writer.
type Supervisor struct {
	cfg      *config.Config
	client   llm.Client
	registry *tools.Registry
	state    tooltypes.State
	specs    []tooltypes.ToolSpec
	handler  llmtypes.MessageHandler
}

// NewSupervisor assembles a supervisor. The registry and state are read-only
// from here on, so one of each can serve concurrent sessions.
func NewSupervisor(cfg *config.Config, client llm.Client, registry *tools.Registry, state tooltypes.State, handler llmtypes.MessageHandler) *Supervisor {
	if handler == nil {
		handler = &llmtypes.ConsoleMessageHandler{Silent: true}
	}
	return &Supervisor{
		cfg:      cfg,
		client:   client,
		registry: registry,
		state:    state,
		specs:    registry.Specs(),
		handler:  handler,
	}
}

// Run executes one session: it seeds the conversation from the system prompt
// and task description, then drives steps until completion, budget
// exhaustion, cancellation, or failure. The step budget is enforced strictly;
// with a budget of N no more than N model calls are ever made.
func (s *Supervisor) Run(ctx context.Context, systemPrompt, task string) SessionResult {
	log := logger.G(ctx)

	conv := llmtypes.NewConversation(
		llmtypes.Message{Role: llmtypes.RoleSystem, Content: systemPrompt},
		llmtypes.Message{Role: llmtypes.RoleUser, Content: task},
	)

	result := SessionResult{Conversation: conv}

	err := telemetry.WithSpan(ctx, "agent.session", func(ctx context.Context) error {
		defer func() {
			telemetry.SetAttributes(ctx,
				attribute.String("session.reason", string(result.Reason)),
				attribute.Int("session.steps", result.Steps),
			)
		}()

		for {
			// Cancellation is cooperative and observed only at step
			// boundaries; a dispatch that has started always runs to
			// completion.
			if err := ctx.Err(); err != nil {
				result.Reason = ReasonFailed
				result.Err = err
				return err
			}

			if result.Steps >= s.cfg.StepBudget {
				log.WithField("budget", s.cfg.StepBudget).Info("step budget exhausted")
				result.Reason = ReasonBudgetExhausted
				return nil
			}
			result.Steps++

			outcome := s.step(ctx, conv, &result.Usage)
			switch outcome.state {
			case StateCompleted:
				result.Reason = ReasonCompleted
				result.Summary = outcome.summary
				s.handler.HandleDone()
				return nil
			case StateFailed:
				log.WithError(outcome.err).Error("session failed")
				result.Reason = ReasonFailed
				result.Err = outcome.err
				return outcome.err
			}
		}
	}, attribute.Int("session.step_budget", s.cfg.StepBudget))
	_ = err // terminal status is carried in result; the span just records it

	return result
}
