// Package anthropic implements llm.Provider on top of Anthropic's official
// Go SDK. BOAR uses the SDK directly rather than a hand-rolled HTTP client —
// the teacher's own antropic package speaks raw HTTP to the Messages API,
// but the pack carries the official SDK, which is the strictly
// better-grounded choice for the same concern.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/boarsvc/boar/internal/llm"
)

const DefaultModel = anthropic.ModelClaudeSonnet4_20250514

type Provider struct {
	Model     string
	MaxTokens int64

	client anthropic.Client
}

// New creates an Anthropic-backed provider. maxTokens defaults to 4096 when
// zero or negative.
func New(apiKey, model string, maxTokens int64) *Provider {
	if model == "" {
		model = string(DefaultModel)
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Provider{
		Model:     model,
		MaxTokens: maxTokens,
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (p *Provider) Chat(ctx context.Context, model string, messages []llm.Message, tools []llm.Tool, opts llm.ChatOptions) (*llm.Response, error) {
	if model == "" {
		model = p.Model
	}

	var system string
	var history []anthropic.MessageParam
	for _, m := range messages {
		text, _ := m.Content.(string)
		if m.Role == "system" {
			system = text
			continue
		}

		role := anthropic.MessageParamRoleUser
		if m.Role == "assistant" {
			role = anthropic.MessageParamRoleAssistant
		}
		history = append(history, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)},
		})
	}

	maxTokens := p.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  history,
	}
	if opts.Temperature != 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		toolUnions := make([]anthropic.ToolUnionParam, len(tools))
		for i, t := range tools {
			schema := anthropic.ToolInputSchemaParam{}
			if props, ok := t.InputSchema["properties"]; ok {
				if raw, err := json.Marshal(props); err == nil {
					var properties any
					_ = json.Unmarshal(raw, &properties)
					schema.Properties = properties
				}
			}
			toolUnions[i] = anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        t.Name,
					Description: anthropic.String(t.Description),
					InputSchema: schema,
				},
			}
		}
		params.Tools = toolUnions
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	resp := &llm.Response{
		Finished: msg.StopReason != anthropic.StopReasonToolUse,
		Usage: llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("parse tool_use input: %w", err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}

	return resp, nil
}
