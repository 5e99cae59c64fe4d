// Package llm implements the LLM Orchestrator (spec.md §4.B): a
// provider-agnostic facade over chat-completion APIs offering three entry
// points (Generate, AnalyzeJSON, ToolCall) plus conversation memory and
// language detection, grounded on the teacher's internal/service.LLMProvider
// shape and its agent-call workflow node.
package llm

import "context"

// Message is a single turn in a conversation. Content is usually a string
// for simple turns, but providers may need structured content (e.g. a tool
// result); callers pass whatever the target provider understands.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Tool is a callable function exposed to the model, described as a JSON
// Schema parameter object, matching the teacher's service.Tool shape.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Usage reports token accounting for a single Chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a single Chat call's result.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Finished  bool // false means the model wants to call tools before finishing
	Usage     Usage
}

// ChatOptions carries per-request generation parameters. A zero value means
// "use the provider's defaults."
type ChatOptions struct {
	Temperature float64 // 0 means unset; providers that support it pass it through
	MaxTokens   int     // 0 means unset; providers fall back to their own default
}

// Provider is the generic interface every LLM backend implements, matching
// the teacher's service.LLMProvider contract generalized with per-request
// ChatOptions (spec.md §4.B's generate() needs temperature/max_tokens, which
// the teacher's gateway-facing Chat signature has no use for).
type Provider interface {
	Chat(ctx context.Context, model string, messages []Message, tools []Tool, opts ChatOptions) (*Response, error)
}
