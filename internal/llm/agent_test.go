package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// scriptedProvider replays canned assistant messages and records requests.
type scriptedProvider struct {
	replies  []openai.ChatCompletionMessage
	requests []ChatRequest
}

func (s *scriptedProvider) Name() string                     { return "scripted" }
func (s *scriptedProvider) IsAvailable(context.Context) bool { return true }

func (s *scriptedProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	copy(msgs, req.Messages)
	s.requests = append(s.requests, ChatRequest{Messages: msgs, Tools: req.Tools})

	if len(s.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	msg := s.replies[0]
	s.replies = s.replies[1:]
	return &ChatResponse{Message: msg, TokensUsed: 10}, nil
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func lookupTool(calls *[]map[string]any) Tool {
	return Tool{
		Name:        "vessel_lookup",
		Description: "Look up vessels",
		Parameters:  json.RawMessage(`{"type":"object"}`),
		Call: func(_ context.Context, args map[string]any) (any, bool) {
			*calls = append(*calls, args)
			if args["kind"] != "lookupByName" {
				return map[string]any{"resultStatus": "invalid"}, true
			}
			return map[string]any{"resultStatus": "ok", "total": 1}, false
		},
	}
}

func TestAgent_Ask_ToolLoop(t *testing.T) {
	provider := &scriptedProvider{replies: []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{
				toolCall("call_1", "vessel_lookup", `{"kind":"lookupByName","parameters":{"name":"SEA STAR"}}`),
			},
		},
		{Role: openai.ChatMessageRoleAssistant, Content: "  SEA STAR is moored.  "},
	}}

	var calls []map[string]any
	agent := NewAgent(provider, []Tool{lookupTool(&calls)}, 4, nil)

	answer, err := agent.Ask(context.Background(), "Where is SEA STAR?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.Text != "SEA STAR is moored." {
		t.Errorf("Unexpected answer: %q", answer.Text)
	}
	if answer.Turns != 2 || answer.ToolCalls != 1 || answer.TokensUsed != 20 {
		t.Errorf("Unexpected counters: %+v", answer)
	}

	if len(calls) != 1 || calls[0]["kind"] != "lookupByName" {
		t.Fatalf("Expected one lookupByName call, got %v", calls)
	}

	if len(provider.requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(provider.requests))
	}
	first := provider.requests[0]
	if len(first.Tools) != 1 || first.Tools[0].Function.Name != "vessel_lookup" {
		t.Errorf("Tool definition not sent: %+v", first.Tools)
	}
	if first.Messages[0].Role != openai.ChatMessageRoleSystem || first.Messages[1].Content != "Where is SEA STAR?" {
		t.Errorf("Unexpected opening messages: %+v", first.Messages)
	}

	second := provider.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call_1" {
		t.Errorf("Expected tool reply for call_1, got %+v", last)
	}
	if !strings.Contains(last.Content, `"resultStatus":"ok"`) {
		t.Errorf("Tool result not forwarded: %s", last.Content)
	}
}

func TestAgent_Ask_BadArgumentsAndUnknownTool(t *testing.T) {
	provider := &scriptedProvider{replies: []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{
				toolCall("call_1", "vessel_lookup", `{"kind":`),
				toolCall("call_2", "weather", `{}`),
				toolCall("call_3", "vessel_lookup", `{"kind":"lookupByColor"}`),
			},
		},
		{Role: openai.ChatMessageRoleAssistant, Content: "I could not find that."},
	}}

	var calls []map[string]any
	agent := NewAgent(provider, []Tool{lookupTool(&calls)}, 0, nil)

	answer, err := agent.Ask(context.Background(), "?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer.ToolCalls != 3 {
		t.Errorf("Expected 3 tool calls, got %d", answer.ToolCalls)
	}
	if len(calls) != 1 {
		t.Errorf("Only the well-formed call should reach the tool, got %v", calls)
	}

	msgs := provider.requests[1].Messages
	replies := msgs[len(msgs)-3:]
	if !strings.Contains(replies[0].Content, "arguments must be a JSON object") {
		t.Errorf("Unexpected reply for malformed arguments: %s", replies[0].Content)
	}
	if !strings.Contains(replies[1].Content, `unknown tool \"weather\"`) {
		t.Errorf("Unexpected reply for unknown tool: %s", replies[1].Content)
	}
	if !strings.Contains(replies[2].Content, `"resultStatus":"invalid"`) {
		t.Errorf("Failed tool result not forwarded: %s", replies[2].Content)
	}
}

func TestAgent_Ask_MaxTurns(t *testing.T) {
	loop := openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{toolCall("c", "vessel_lookup", `{"kind":"lookupByName"}`)},
	}
	provider := &scriptedProvider{replies: []openai.ChatCompletionMessage{loop, loop, loop}}

	var calls []map[string]any
	agent := NewAgent(provider, []Tool{lookupTool(&calls)}, 2, nil)

	_, err := agent.Ask(context.Background(), "loop forever")
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("Expected ErrMaxTurns, got %v", err)
	}
	if len(provider.requests) != 2 {
		t.Errorf("Expected 2 requests, got %d", len(provider.requests))
	}
}

func TestAgent_Ask_ProviderError(t *testing.T) {
	agent := NewAgent(&scriptedProvider{}, nil, 3, nil)
	if _, err := agent.Ask(context.Background(), "hello"); err == nil {
		t.Fatal("Expected provider error")
	}
}

func TestAgent_Ask_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent := NewAgent(&scriptedProvider{}, nil, 3, nil)
	if _, err := agent.Ask(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
