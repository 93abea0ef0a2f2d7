package llm

// Usage represents token usage information from LLM API calls
type Usage struct {
	InputTokens  int // Prompt tokens sent to the model
	OutputTokens int // Completion tokens generated by the model
}

// TotalTokens returns the total number of tokens used
func (u *Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage sample into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
