// Package llm defines the provider-neutral message, conversation, and usage
// types shared between the model clients and the agent runtime.
package llm

// MessageRole identifies the author of a conversation message.
type MessageRole string

// Message roles
const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCall is a tool invocation requested by the model. Arguments is the raw
// JSON-encoded argument object as returned by the provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is a single entry in a conversation. A message is immutable once
// appended; tool results link back to their originating call via ToolCallID.
type Message struct {
	Role    MessageRole
	Content string

	// ToolCalls is populated on assistant messages that request tool use.
	ToolCalls []ToolCall

	// ToolCallID and IsError are populated on tool-role messages only.
	ToolCallID string
	IsError    bool
}

// ModelResponse is the outcome of one model exchange: assistant text, any
// requested tool calls in the order the model returned them, and token usage.
type ModelResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}
