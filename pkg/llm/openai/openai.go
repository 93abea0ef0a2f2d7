// Package openai implements the model client against the OpenAI chat
// completions API and any OpenAI-compatible endpoint via a base URL override.
package openai

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pkg/errors"

	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

const defaultModel = openai.GPT4Dot1

// Client is a stateless OpenAI model client.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewClient creates an OpenAI client for the given model. The API key comes
// from OPENAI_API_KEY; baseURL optionally points at a compatible endpoint.
func NewClient(model string, maxTokens int, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if maxTokens == 0 {
		maxTokens = 8192
	}

	clientConfig := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete performs one exchange with the model. The conversation is read,
// never mutated.
func (c *Client) Complete(ctx context.Context, conversation *llmtypes.Conversation, specs []tooltypes.ToolSpec) (llmtypes.ModelResponse, error) {
	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               c.model,
		MaxCompletionTokens: c.maxTokens,
		Messages:            toChatMessages(conversation.Messages()),
		Tools:               toOpenAITools(specs),
	})
	if err != nil {
		return llmtypes.ModelResponse{}, classifyError(err)
	}

	if len(response.Choices) == 0 {
		return llmtypes.ModelResponse{}, llmtypes.NewFatalError(errors.New("model returned no choices"))
	}

	return parseResponse(response), nil
}

func toChatMessages(messages []llmtypes.Message) []openai.ChatCompletionMessage {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llmtypes.RoleSystem:
			chatMessages = append(chatMessages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})

		case llmtypes.RoleUser:
			chatMessages = append(chatMessages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})

		case llmtypes.RoleAssistant:
			chatMessage := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, call := range msg.ToolCalls {
				chatMessage.ToolCalls = append(chatMessage.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			chatMessages = append(chatMessages, chatMessage)

		case llmtypes.RoleTool:
			chatMessages = append(chatMessages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}

	return chatMessages
}

func toOpenAITools(specs []tooltypes.ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, len(specs))
	for i, spec := range specs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Schema,
			},
		}
	}
	return tools
}

func parseResponse(response openai.ChatCompletionResponse) llmtypes.ModelResponse {
	choice := response.Choices[0].Message

	result := llmtypes.ModelResponse{
		Content: choice.Content,
		Usage: llmtypes.Usage{
			InputTokens:  response.Usage.PromptTokens,
			OutputTokens: response.Usage.CompletionTokens,
		},
	}

	for _, call := range choice.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, llmtypes.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	return result
}

// classifyError tags API failures with retryability.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return llmtypes.NewRetryableError(err)
		default:
			return llmtypes.NewFatalError(err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llmtypes.NewRetryableError(err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return llmtypes.NewFatalError(err)
	}

	return llmtypes.NewRetryableError(err)
}
