// Package anthropic implements the model client against Anthropic's Claude
// API. The wire protocol is invisible above the llm.Client interface.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"

	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

const defaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

// Client is a stateless Anthropic model client. Credentials come from the
// SDK's standard environment variables (ANTHROPIC_API_KEY).
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewClient creates an Anthropic client for the given model.
func NewClient(model string, maxTokens int) *Client {
	if model == "" {
		model = defaultModel
	}
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &Client{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete performs one exchange with the model. The conversation is read,
// never mutated.
func (c *Client) Complete(ctx context.Context, conversation *llmtypes.Conversation, specs []tooltypes.ToolSpec) (llmtypes.ModelResponse, error) {
	messages, systemPrompt := toMessageParams(conversation.Messages())

	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: messages,
		Tools:    toAnthropicTools(specs),
	})
	if err != nil {
		return llmtypes.ModelResponse{}, classifyError(err)
	}

	return parseResponse(response), nil
}

// toMessageParams converts the neutral transcript into Anthropic message
// params. Anthropic carries the system prompt out of band, assistant tool
// calls as tool_use blocks, and tool results as user-role tool_result blocks.
func toMessageParams(messages []llmtypes.Message) ([]anthropic.MessageParam, string) {
	var systemPrompt string
	params := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llmtypes.RoleSystem:
			systemPrompt = msg.Content

		case llmtypes.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case llmtypes.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    call.ID,
						Name:  call.Name,
						Input: json.RawMessage(call.Arguments),
					},
				})
			}
			params = append(params, anthropic.NewAssistantMessage(blocks...))

		case llmtypes.RoleTool:
			params = append(params, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError),
			))
		}
	}

	return params, systemPrompt
}

func toAnthropicTools(specs []tooltypes.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(specs))
	for i, spec := range specs {
		tools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: spec.Schema.Properties,
				},
			},
		}
	}
	return tools
}

func parseResponse(response *anthropic.Message) llmtypes.ModelResponse {
	result := llmtypes.ModelResponse{
		Usage: llmtypes.Usage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}

	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			if result.Content != "" {
				result.Content += "\n"
			}
			result.Content += variant.Text
		case anthropic.ToolUseBlock:
			result.ToolCalls = append(result.ToolCalls, llmtypes.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(variant.Input),
			})
		}
	}

	return result
}

// classifyError tags API failures with retryability. Rate limiting and
// server-side faults are transient; auth and malformed requests are not.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 408 || apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return llmtypes.NewRetryableError(err)
		default:
			return llmtypes.NewFatalError(err)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llmtypes.NewFatalError(err)
	}

	// Anything else at this level is a transport fault.
	return llmtypes.NewRetryableError(err)
}
