package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boarsvc/boar/internal/boarerr"
)

// maxToolIterations bounds the tool-calling loop at K=5 (spec.md §4.B).
const maxToolIterations = 5

// ToolHandler executes a single tool call and returns its textual result,
// mirroring the teacher's agent_call node dispatch (JS/bash handler, MCP
// client, or — here — a directly-registered Go function per tool name).
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// ErrBadJSON is returned by AnalyzeJSON when the provider's response could
// not be parsed as a single JSON object after fence-stripping.
type ErrBadJSON struct {
	Preview string
}

func (e *ErrBadJSON) Error() string {
	return fmt.Sprintf("llm: response was not valid JSON: %s", e.Preview)
}

// Orchestrator wraps a Provider with BOAR's three entry points (Generate,
// AnalyzeJSON, ToolCall) plus the structured-output fallback cascade used
// by the Analytical Pipelines.
type Orchestrator struct {
	Provider Provider
	Model    string
	Memory   *ConversationMemory
}

// NewOrchestrator builds an Orchestrator over provider, defaulting to model
// for calls that don't override it, with its own conversation memory.
func NewOrchestrator(provider Provider, model string) *Orchestrator {
	return &Orchestrator{Provider: provider, Model: model, Memory: NewConversationMemory()}
}

// Generate is the single-shot entry point: prompt + optional system
// instruction, returning the model's text response (spec.md §4.B.1).
func (o *Orchestrator) Generate(ctx context.Context, prompt, system string, temperature float64, maxTokens int) (string, error) {
	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	resp, err := o.Provider.Chat(ctx, o.Model, messages, nil, ChatOptions{Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return resp.Content, nil
}

// AnalyzeJSON appends data as a fenced JSON block to prompt, forces a
// JSON-only system instruction, and parses the first well-formed JSON
// object in the response, stripping any leading/trailing code-fence lines
// (spec.md §4.B.2; grounded on the `_extract_json` helpers throughout
// original_source/*/app/services/ai/*_client.py, which all do exactly this
// fence-stripping before json.loads).
func (o *Orchestrator) AnalyzeJSON(ctx context.Context, prompt string, data any, system string) (map[string]any, error) {
	dataJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("analyze_json: marshal data: %w", err)
	}

	fullPrompt := fmt.Sprintf("%s\n\n```json\n%s\n```", prompt, string(dataJSON))
	fullSystem := system
	if fullSystem != "" {
		fullSystem += "\n\n"
	}
	fullSystem += "Respond with pure JSON only. No prose, no markdown, no code fences."

	resp, err := o.Provider.Chat(ctx, o.Model,
		[]Message{{Role: "system", Content: fullSystem}, {Role: "user", Content: fullPrompt}},
		nil, ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("analyze_json: %w", err)
	}

	cleaned := stripCodeFence(resp.Content)

	var result map[string]any
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &ErrBadJSON{Preview: preview(cleaned, 200)}
	}
	return result, nil
}

// stripCodeFence removes a single leading/trailing ``` or ```json fence
// line, if present, leaving the raw JSON body.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ToolCall runs the bounded (K=5) tool-calling loop (spec.md §4.B),
// grounded directly on the teacher's agent_call node: same
// message-accumulation shape (an assistant message is appended per
// iteration; tool results are aggregated into one follow-up user turn),
// same "return last assistant text on iteration exhaustion" behavior.
//
// context carries opaque default values (e.g. a resolved employee_id) used
// to fill in a tool call's missing required arguments, and is also
// appended as a bracketed suffix to userMessage so the model can reference
// it directly. A nil Orchestrator (no LLM configured) returns a
// KindAiUnavailable error.
func (o *Orchestrator) ToolCall(ctx context.Context, externalID, userMessage string, tools []Tool, handlers map[string]ToolHandler, context_ map[string]any) (string, error) {
	if o == nil {
		return "", boarerr.New(boarerr.KindAiUnavailable, "tool_call: no LLM provider configured")
	}
	hintedMessage := userMessage
	if len(context_) > 0 {
		hintedMessage = fmt.Sprintf("%s [context: %s]", userMessage, contextHint(context_))
	}

	history := o.Memory.History(externalID)
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: hintedMessage})

	var lastText string
	for iteration := 0; iteration < maxToolIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("tool_call: cancelled: %w", err)
		}

		resp, err := o.Provider.Chat(ctx, o.Model, messages, tools, ChatOptions{})
		if err != nil {
			return "", fmt.Errorf("tool_call: chat failed (iteration %d): %w", iteration, err)
		}

		messages = append(messages, Message{Role: "assistant", Content: resp.Content})
		if resp.Content != "" {
			lastText = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			o.Memory.Append(externalID, Message{Role: "user", Content: userMessage}, Message{Role: "assistant", Content: resp.Content})
			return resp.Content, nil
		}

		var results []string
		for _, tc := range resp.ToolCalls {
			args := applyContextDefaults(tc.Arguments, context_, tools, tc.Name)

			handler, ok := handlers[tc.Name]
			if !ok {
				results = append(results, fmt.Sprintf("tool %q: %v", tc.Name, fmt.Errorf("no handler registered")))
				continue
			}

			result, err := handler(ctx, args)
			if err != nil {
				result = fmt.Sprintf("error: %v", err)
			}
			results = append(results, fmt.Sprintf("[%s] %s", tc.Name, result))
		}

		messages = append(messages, Message{Role: "user", Content: strings.Join(results, "\n")})
	}

	if lastText == "" {
		lastText = "I'm sorry, I wasn't able to complete that request."
	}
	o.Memory.Append(externalID, Message{Role: "user", Content: userMessage}, Message{Role: "assistant", Content: lastText})
	return lastText, nil
}

// applyContextDefaults fills in a tool call's missing required parameters
// from context, matching spec.md §4.B step 3.b ("merge provided args with
// context defaults where a required parameter is missing").
func applyContextDefaults(args, context_ map[string]any, tools []Tool, toolName string) map[string]any {
	if args == nil {
		args = map[string]any{}
	}
	if len(context_) == 0 {
		return args
	}

	var required []string
	for _, t := range tools {
		if t.Name != toolName {
			continue
		}
		switch req := t.InputSchema["required"].(type) {
		case []any:
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		case []string:
			required = append(required, req...)
		}
	}

	for _, name := range required {
		if _, present := args[name]; present {
			continue
		}
		if v, ok := context_[name]; ok {
			args[name] = v
		}
	}
	return args
}

func contextHint(context_ map[string]any) string {
	parts := make([]string, 0, len(context_))
	for k, v := range context_ {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ", ")
}

// RunStructured implements the structured-output fallback cascade used by
// every Analytical Pipeline (spec.md §4.B): attempt a schema-validated
// parse via AnalyzeJSON, and on failure fall back to a rule-based result
// computed from the same facts. A nil Orchestrator (no LLM configured)
// returns the fallback directly.
func (o *Orchestrator) RunStructured(ctx context.Context, prompt string, data any, system string, parse func(map[string]any) (any, error), fallback func() any) (any, error) {
	if o == nil {
		return fallback(), nil
	}
	raw, err := o.AnalyzeJSON(ctx, prompt, data, system)
	if err == nil {
		if result, parseErr := parse(raw); parseErr == nil {
			return result, nil
		}
	}
	return fallback(), nil
}
