package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bookforge/bookforge/pkg/agent"
	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/llm"
	"github.com/bookforge/bookforge/pkg/presenter"
	"github.com/bookforge/bookforge/pkg/sysprompt"
	"github.com/bookforge/bookforge/pkg/telemetry"
	"github.com/bookforge/bookforge/pkg/tools"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	"github.com/bookforge/bookforge/pkg/version"
)

// RunOptions contains all options for the run command
type RunOptions struct {
	workspace      string
	stepBudget     int
	silent         bool
	showTranscript bool
}

var runOptions = &RunOptions{}

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run one skill-forging session",
	Long: `Run one agent session that reads the library, produces skill packages, and
exits. The task argument describes what to forge; when omitted, stdin is read
if piped. Exit codes: 0 the session completed, 1 it failed, 2 the step budget
ran out, 3 usage or configuration error.`,
	Args: cobra.MinimumNArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		// Cancellable context that listens for signals; cancellation is
		// observed at step boundaries, never mid-dispatch.
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			presenter.Warning("Cancellation requested, finishing the current step...")
			cancel()
		}()

		task, err := resolveTask(args)
		if err != nil {
			presenter.Error(err, "failed to read task")
			os.Exit(ExitUsageError)
		}

		if runOptions.workspace != "" {
			viper.Set("workspace_root", runOptions.workspace)
		}
		if runOptions.stepBudget > 0 {
			viper.Set("step_budget", runOptions.stepBudget)
		}

		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "invalid configuration")
			os.Exit(ExitUsageError)
		}

		shutdown, err := telemetry.InitTracer(ctx, telemetry.Config{
			Enabled:        cfg.TracingEnabled,
			ServiceName:    "bookforge",
			ServiceVersion: version.Get().Version,
		})
		if err != nil {
			presenter.Error(err, "failed to initialize tracing")
			os.Exit(ExitUsageError)
		}
		defer shutdown(context.Background())

		state, err := tools.NewBasicState(cfg.WorkspaceRoot)
		if err != nil {
			presenter.Error(err, "invalid workspace")
			os.Exit(ExitUsageError)
		}

		entries, err := os.ReadDir(cfg.LibraryPath())
		if err != nil {
			presenter.Error(err, fmt.Sprintf("library directory %s is not readable", cfg.LibraryDir))
			os.Exit(ExitUsageError)
		}
		if len(entries) == 0 {
			presenter.Error(fmt.Errorf("library directory %s is empty", cfg.LibraryDir), "nothing to forge")
			os.Exit(ExitUsageError)
		}

		// The collector echoes unless --silent, and either way keeps the
		// assistant text so the epilogue can report it.
		handler := &llmtypes.StringCollectorHandler{Silent: runOptions.silent}
		supervisor := agent.NewSupervisor(cfg, llm.NewClient(cfg), tools.DefaultRegistry(), state, handler)

		result := supervisor.Run(ctx, sysprompt.SystemPrompt(cfg), task)

		presenter.Separator()
		presenter.Stats(presenter.ConvertUsageStats(result.Usage, result.Steps))

		// The transcript can be long and usually only matters when debugging
		// a failed session, so it stays opt-in.
		if runOptions.showTranscript {
			presenter.Section("Transcript")
			for _, msg := range result.Conversation.Messages() {
				presenter.Info(fmt.Sprintf("[%s] %s", msg.Role, msg.Content))
			}
		}

		switch result.Reason {
		case agent.ReasonCompleted:
			presenter.Success(fmt.Sprintf("Session completed: %s", result.Summary))
			os.Exit(ExitCompleted)
		case agent.ReasonBudgetExhausted:
			presenter.Warning(fmt.Sprintf("Step budget of %d exhausted before completion", cfg.StepBudget))
			reportModelOutput(result, handler)
			os.Exit(ExitBudgetExhausted)
		default:
			presenter.Error(result.Err, "session failed")
			reportModelOutput(result, handler)
			os.Exit(ExitFailed)
		}
	},
}

// reportModelOutput surfaces what the model said when a session ends without
// completing. In silent mode the streamed text was swallowed, so dump the
// collected output; otherwise the last assistant message is enough context.
func reportModelOutput(result agent.SessionResult, handler *llmtypes.StringCollectorHandler) {
	if runOptions.silent {
		if text := strings.TrimSpace(handler.CollectedText()); text != "" {
			presenter.Section("Model output")
			presenter.Info(text)
		}
		return
	}
	if last := result.Conversation.LastAssistantText(); last != "" {
		presenter.Info(fmt.Sprintf("Last model message: %s", last))
	}
}

// resolveTask combines positional args and piped stdin into the task
// description. Args come first so a piped document can be annotated from the
// command line.
func resolveTask(args []string) (string, error) {
	stat, _ := os.Stdin.Stat()
	isPipe := (stat.Mode() & os.ModeCharDevice) == 0

	if isPipe {
		stdinBytes, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		if len(args) > 0 {
			return strings.Join(args, " ") + "\n" + string(stdinBytes), nil
		}
		return string(stdinBytes), nil
	}

	if len(args) == 0 {
		return "Convert every source document in the library into skill packages.", nil
	}
	return strings.Join(args, " "), nil
}

func init() {
	runCmd.Flags().StringVar(&runOptions.workspace, "workspace", "", "Workspace root directory (overrides config)")
	runCmd.Flags().IntVar(&runOptions.stepBudget, "step-budget", 0, "Maximum number of model calls for the session (overrides config)")
	runCmd.Flags().BoolVar(&runOptions.silent, "silent", false, "Suppress streaming of model text and tool activity")
	runCmd.Flags().BoolVar(&runOptions.showTranscript, "show-transcript", false, "Print the full conversation transcript after the session")
}
