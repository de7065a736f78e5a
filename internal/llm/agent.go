package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrMaxTurns is returned when the model keeps calling tools past the turn limit.
var ErrMaxTurns = errors.New("model did not answer within the turn limit")

// ToolFunc executes a tool call. failed marks results the model should
// treat as errors; they are still returned to it.
type ToolFunc func(ctx context.Context, args map[string]any) (result any, failed bool)

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema of the arguments object
	Call        ToolFunc
}

// Answer is the final reply to a question.
type Answer struct {
	Text       string
	Turns      int
	ToolCalls  int
	TokensUsed int
}

// Agent runs the tool-calling loop.
type Agent struct {
	provider Provider
	tools    map[string]Tool
	defs     []openai.Tool
	maxTurns int
	log      *zap.Logger
}

// NewAgent creates an agent. maxTurns <= 0 uses the default.
func NewAgent(provider Provider, tools []Tool, maxTurns int, log *zap.Logger) *Agent {
	if maxTurns <= 0 {
		maxTurns = DefaultConfig().MaxTurns
	}
	if log == nil {
		log = zap.NewNop()
	}

	a := &Agent{
		provider: provider,
		tools:    make(map[string]Tool, len(tools)),
		maxTurns: maxTurns,
		log:      log,
	}
	for _, t := range tools {
		a.tools[t.Name] = t
		a.defs = append(a.defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return a
}

// Ask sends question to the model and executes its tool calls until it
// answers in plain text.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}
	answer := &Answer{}

	for answer.Turns < a.maxTurns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		answer.Turns++

		resp, err := a.provider.Chat(ctx, ChatRequest{Messages: messages, Tools: a.defs})
		if err != nil {
			return nil, err
		}
		answer.TokensUsed += resp.TokensUsed

		msg := resp.Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			answer.Text = strings.TrimSpace(msg.Content)
			return answer, nil
		}

		for _, call := range msg.ToolCalls {
			answer.ToolCalls++
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.execute(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("%w (%d turns)", ErrMaxTurns, a.maxTurns)
}

// execute runs one call and renders its result as the tool message body.
func (a *Agent) execute(ctx context.Context, call openai.ToolCall) string {
	log := a.log.With(zap.String("tool", call.Function.Name), zap.String("tool_call_id", call.ID))

	t, ok := a.tools[call.Function.Name]
	if !ok {
		log.Warn("model called unknown tool")
		return errorBody(fmt.Sprintf("unknown tool %q", call.Function.Name))
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn("tool arguments are not a JSON object", zap.Error(err))
			return errorBody(fmt.Sprintf("arguments must be a JSON object: %v", err))
		}
	}

	result, failed := t.Call(ctx, args)
	log.Debug("tool executed", zap.Bool("failed", failed))

	body, err := json.Marshal(result)
	if err != nil {
		return errorBody(fmt.Sprintf("encode result: %v", err))
	}
	return string(body)
}

func errorBody(msg string) string {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return string(body)
}
