package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"propdesk/internal/eventbus"
	"propdesk/internal/llm"
	"propdesk/internal/schema"
	"propdesk/internal/tool"
)

const (
	defaultModelTimeout = 120 * time.Second
	defaultToolTimeout  = 30 * time.Second
)

// runTurn drives one conversational turn: model call, tool execution, and
// repeat until the model produces a final text answer or the round cap is
// reached. Mutating tools complete before the reply is returned.
func (a *Assistant) runTurn(ctx context.Context, chatID, userText string) (string, error) {
	limit := a.cfg.HistoryLimit
	if limit <= 0 {
		limit = 30
	}
	history, err := a.store.History(ctx, chatID, limit)
	if err != nil {
		log.Printf("[assistant] failed to load history for %s: %v", chatID, err)
		history = nil
	}

	messages := append(history, llm.Message{Role: "user", Content: userText})
	_ = a.store.SaveMessage(ctx, chatID, llm.Message{Role: "user", Content: userText})

	rounds := a.cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = 5
	}

	for round := 0; round < rounds; round++ {
		req := &llm.ChatRequest{
			Messages:     messages,
			Tools:        a.registry.Definitions(),
			MaxTokens:    a.cfg.MaxTokens,
			Temperature:  a.cfg.Temperature,
			SystemPrompt: a.cfg.SystemPrompt,
		}

		a.bus.Publish(eventbus.TopicLLMRequest, req)
		resp, err := a.chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}
		a.bus.Publish(eventbus.TopicLLMResponse, resp)

		// No tool calls means the model composed the final answer.
		if len(resp.ToolCalls) == 0 {
			_ = a.store.SaveMessage(ctx, chatID, llm.Message{Role: "assistant", Content: resp.Content})
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results, err := a.executeCalls(ctx, resp.ToolCalls)
		if err != nil {
			return "", err
		}
		for _, res := range results {
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    res.content,
				ToolCallID: res.id,
			})
		}
	}

	return "", fmt.Errorf("tool rounds exhausted after %d for chat %s", rounds, chatID)
}

// chat calls the provider with a per-call timeout.
func (a *Assistant) chat(ctx context.Context, req *llm.ChatRequest) (*llm.LLMResponse, error) {
	timeout := defaultModelTimeout
	if a.cfg.ModelTimeoutSecs > 0 {
		timeout = time.Duration(a.cfg.ModelTimeoutSecs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.provider.Chat(ctx, req)
}

type callResult struct {
	id      string
	name    string
	content string
}

// executeCalls runs the tool calls of one model turn. The calls share no
// per-turn state, so they run concurrently; results keep the request order.
// A failed call produces an error result for its own slot while its siblings
// keep theirs. Unknown tool names and malformed handler output abort the
// whole turn instead.
func (a *Assistant) executeCalls(ctx context.Context, calls []llm.ToolCall) ([]callResult, error) {
	results := make([]callResult, len(calls))
	fatals := make([]error, len(calls))

	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc llm.ToolCall) {
			defer wg.Done()
			content, err := a.executeCall(ctx, tc)
			results[i] = callResult{id: tc.ID, name: tc.Name, content: content}
			fatals[i] = err
		}(i, tc)
	}
	wg.Wait()

	for _, err := range fatals {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// executeCall dispatches a single tool call. The returned string is what the
// model sees as the tool result; recoverable problems (bad arguments, handler
// errors) become error text for the model to work around. The returned error
// is fatal to the turn.
func (a *Assistant) executeCall(ctx context.Context, tc llm.ToolCall) (string, error) {
	a.bus.Publish(eventbus.TopicToolCall, tc)

	t, err := a.registry.Lookup(tc.Name)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			log.Printf("[assistant] model requested unregistered tool %q", tc.Name)
		}
		return "", fmt.Errorf("dispatch %s: %w", tc.Name, err)
	}

	var raw map[string]any
	if len(tc.Arguments) > 0 {
		if err := json.Unmarshal(tc.Arguments, &raw); err != nil {
			log.Printf("[assistant] undecodable arguments for %s: %v", tc.Name, err)
			return "Error: arguments for " + tc.Name + " are not a valid object.", nil
		}
	}

	args, err := schema.Validate(t.Input, raw)
	if err != nil {
		log.Printf("[assistant] invalid arguments for %s: %v", tc.Name, err)
		return "Error: invalid arguments for " + tc.Name + ": " + err.Error(), nil
	}

	timeout := defaultToolTimeout
	if a.cfg.ToolTimeoutSecs > 0 {
		timeout = time.Duration(a.cfg.ToolTimeoutSecs) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := t.Handler(callCtx, args)
	if err != nil {
		log.Printf("[assistant] tool %s failed: %v", tc.Name, err)
		return "Error executing " + tc.Name + ": " + err.Error(), nil
	}

	// A handler returning a shape it did not declare is a bug, not a model
	// mistake; the user gets the generic failure message.
	if _, err := schema.Validate(t.Output, out); err != nil {
		return "", fmt.Errorf("tool %s returned malformed result: %w", tc.Name, err)
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode %s result: %w", tc.Name, err)
	}

	a.bus.Publish(eventbus.TopicToolResult, map[string]string{"id": tc.ID, "result": string(payload)})
	return string(payload), nil
}
