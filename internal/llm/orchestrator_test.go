package llm

import (
	"context"
	"fmt"
	"testing"
)

// fakeProvider scripts a fixed sequence of responses for orchestrator tests.
type fakeProvider struct {
	responses []*Response
	calls     int
	lastReq   struct {
		messages []Message
		tools    []Tool
	}
}

func (f *fakeProvider) Chat(_ context.Context, _ string, messages []Message, tools []Tool, _ ChatOptions) (*Response, error) {
	f.lastReq.messages = messages
	f.lastReq.tools = tools

	if f.calls >= len(f.responses) {
		return nil, fmt.Errorf("fakeProvider: no more scripted responses")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func TestGenerate(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{{Content: "the answer is 42", Finished: true}}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	got, err := o.Generate(context.Background(), "what is the answer", "be concise", 0.2, 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "the answer is 42" {
		t.Errorf("Generate = %q", got)
	}
	if len(fp.lastReq.messages) != 2 || fp.lastReq.messages[0].Role != "system" {
		t.Errorf("expected system+user messages, got %+v", fp.lastReq.messages)
	}
}

func TestAnalyzeJSONStripsCodeFence(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{{Content: "```json\n{\"status\": \"ok\", \"count\": 3}\n```", Finished: true}}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	result, err := o.AnalyzeJSON(context.Background(), "summarize", map[string]int{"tasks": 3}, "")
	if err != nil {
		t.Fatalf("AnalyzeJSON: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("result[status] = %v, want ok", result["status"])
	}
	if result["count"] != float64(3) {
		t.Errorf("result[count] = %v, want 3", result["count"])
	}
}

func TestAnalyzeJSONBadJSON(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{{Content: "I'm not sure how to answer that.", Finished: true}}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	_, err := o.AnalyzeJSON(context.Background(), "summarize", nil, "")
	var badJSON *ErrBadJSON
	if !errorsAs(err, &badJSON) {
		t.Fatalf("expected ErrBadJSON, got %v (%T)", err, err)
	}
}

func errorsAs(err error, target **ErrBadJSON) bool {
	e, ok := err.(*ErrBadJSON)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestToolCallNoToolsNeeded(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{{Content: "you have 12 vacation days left", Finished: true}}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	got, err := o.ToolCall(context.Background(), "user-1", "how many vacation days do I have", nil, nil, nil)
	if err != nil {
		t.Fatalf("ToolCall: %v", err)
	}
	if got != "you have 12 vacation days left" {
		t.Errorf("ToolCall = %q", got)
	}
	if len(o.Memory.History("user-1")) != 2 {
		t.Errorf("expected the turn to be recorded in memory, got %d messages", len(o.Memory.History("user-1")))
	}
}

func TestToolCallInvokesHandlerAndAppliesContextDefault(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{
		{ToolCalls: []ToolCall{{ID: "call_1", Name: "get_leave_balance", Arguments: map[string]any{}}}},
		{Content: "you have 8 days remaining", Finished: true},
	}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	var capturedArgs map[string]any
	handlers := map[string]ToolHandler{
		"get_leave_balance": func(_ context.Context, args map[string]any) (string, error) {
			capturedArgs = args
			return "8 days", nil
		},
	}
	tools := []Tool{{
		Name:        "get_leave_balance",
		InputSchema: map[string]any{"type": "object", "required": []any{"employee_id"}},
	}}

	got, err := o.ToolCall(context.Background(), "user-2", "how many days off left", tools, handlers, map[string]any{"employee_id": float64(42)})
	if err != nil {
		t.Fatalf("ToolCall: %v", err)
	}
	if got != "you have 8 days remaining" {
		t.Errorf("ToolCall = %q", got)
	}
	if capturedArgs["employee_id"] != float64(42) {
		t.Errorf("expected context default employee_id to be applied, got %v", capturedArgs["employee_id"])
	}
}

func TestToolCallUnhandledToolReturnsErrorToModel(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{
		{ToolCalls: []ToolCall{{ID: "call_1", Name: "unknown_tool", Arguments: map[string]any{}}}},
		{Content: "sorry, I can't do that", Finished: true},
	}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	got, err := o.ToolCall(context.Background(), "user-3", "do the impossible thing", nil, map[string]ToolHandler{}, nil)
	if err != nil {
		t.Fatalf("ToolCall: %v", err)
	}
	if got != "sorry, I can't do that" {
		t.Errorf("ToolCall = %q", got)
	}
}

func TestToolCallExhaustsIterationsAndReturnsLastText(t *testing.T) {
	loopResp := &Response{Content: "still working on it", ToolCalls: []ToolCall{{ID: "call_x", Name: "noop"}}}
	responses := make([]*Response, maxToolIterations)
	for i := range responses {
		responses[i] = loopResp
	}
	fp := &fakeProvider{responses: responses}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	handlers := map[string]ToolHandler{"noop": func(_ context.Context, _ map[string]any) (string, error) { return "done", nil }}

	got, err := o.ToolCall(context.Background(), "user-4", "keep going", nil, handlers, nil)
	if err != nil {
		t.Fatalf("ToolCall: %v", err)
	}
	if got != "still working on it" {
		t.Errorf("ToolCall = %q, want last assistant text on exhaustion", got)
	}
	if fp.calls != maxToolIterations {
		t.Errorf("calls = %d, want %d (bounded loop)", fp.calls, maxToolIterations)
	}
}

func TestRunStructuredFallsBackOnParseFailure(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{{Content: "not json at all", Finished: true}}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	result, err := o.RunStructured(context.Background(), "analyze", map[string]int{"x": 1}, "",
		func(raw map[string]any) (any, error) { return raw, nil },
		func() any { return "fallback-value" },
	)
	if err != nil {
		t.Fatalf("RunStructured: %v", err)
	}
	if result != "fallback-value" {
		t.Errorf("RunStructured = %v, want fallback-value", result)
	}
}

func TestRunStructuredUsesParsedValueOnSuccess(t *testing.T) {
	fp := &fakeProvider{responses: []*Response{{Content: `{"score": 0.9}`, Finished: true}}}
	o := NewOrchestrator(fp, "gpt-4o-mini")

	result, err := o.RunStructured(context.Background(), "analyze", nil, "",
		func(raw map[string]any) (any, error) { return raw["score"], nil },
		func() any { return 0.0 },
	)
	if err != nil {
		t.Fatalf("RunStructured: %v", err)
	}
	if result != float64(0.9) {
		t.Errorf("RunStructured = %v, want 0.9", result)
	}
}
