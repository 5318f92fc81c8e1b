package assistant

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"propdesk/internal/config"
	"propdesk/internal/eventbus"
	"propdesk/internal/llm"
	"propdesk/internal/schema"
	"propdesk/internal/store"
	"propdesk/internal/tool"
)

// scriptedProvider replays canned responses and records every request.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.LLMResponse
	errs      []error
	requests  []*llm.ChatRequest
	next      int
}

func (p *scriptedProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)

	i := p.next
	if i >= len(p.responses) && i >= len(p.errs) {
		i = len(p.responses) - 1 // replay the last response when over-called
	} else {
		p.next++
	}
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.responses[i], nil
}

func (p *scriptedProvider) Name() string         { return "scripted" }
func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: []byte(args)}
}

func finalAnswer(text string) *llm.LLMResponse {
	return &llm.LLMResponse{Content: text, StopReason: "stop"}
}

func newTestAssistant(t *testing.T, provider llm.Provider, extra ...tool.Tool) (*Assistant, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	registry, err := tool.NewRegistry(append(tool.Defaults(st), extra...)...)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults().Assistant
	cfg.MaxToolRounds = 3
	return New(cfg, provider, registry, st, eventbus.New()), st
}

func seed(t *testing.T, st store.Store, props ...store.Property) {
	t.Helper()
	for _, p := range props {
		if _, err := st.CreateProperty(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDirectAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		finalAnswer("You manage 3 properties."),
	}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "how many properties do I have?"})
	if out.AssistantResponse != "You manage 3 properties." {
		t.Fatalf("final answer must be returned verbatim, got %q", out.AssistantResponse)
	}

	req := provider.requests[0]
	if len(req.Tools) != 5 {
		t.Fatalf("expected 5 tool declarations, got %d", len(req.Tools))
	}
	if req.SystemPrompt == "" {
		t.Fatal("expected a system prompt")
	}
}

func TestToolCallThenFinalAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "listProperties", `{"filter":"sold","location":"Bahria Town"}`),
		}},
		finalAnswer("You have one sold property in Bahria Town: Plot 5."),
	}}
	a, st := newTestAssistant(t, provider)
	seed(t, st,
		store.Property{Name: "Plot 5", Address: "Plot 5, Bahria Town Karachi", IsSoldOnInstallment: true},
		store.Property{Name: "Flat 2", Address: "Gulshan", IsRented: true},
	)

	out := a.ChatWithAssistant(context.Background(), ChatInput{
		ChatID:      "c",
		UserMessage: "list my sold properties in Bahria Town",
	})
	if !strings.Contains(out.AssistantResponse, "Plot 5") {
		t.Fatalf("unexpected response: %q", out.AssistantResponse)
	}

	// The second request must carry the tool result back to the model.
	if len(provider.requests) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(provider.requests))
	}
	second := provider.requests[1]
	var toolMsg *llm.Message
	for i := range second.Messages {
		if second.Messages[i].Role == "tool" && second.Messages[i].ToolCallID == "c1" {
			toolMsg = &second.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatal("tool result was not fed back to the model")
	}
	if !strings.Contains(toolMsg.Content, "Plot 5") || strings.Contains(toolMsg.Content, "Flat 2") {
		t.Fatalf("tool result should contain exactly the matching property: %s", toolMsg.Content)
	}
}

func TestAddTaskScenario(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "addBusinessTask", `{"taskDescription":"call Ahmed tomorrow"}`),
		}},
		finalAnswer(`Done, I recorded the task "call Ahmed tomorrow".`),
	}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "add a task: call Ahmed tomorrow"})
	if !strings.Contains(out.AssistantResponse, "call Ahmed tomorrow") {
		t.Fatalf("response must contain the task description: %q", out.AssistantResponse)
	}

	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || !strings.Contains(last.Content, "call Ahmed tomorrow") {
		t.Fatalf("tool confirmation should quote the task verbatim: %+v", last)
	}
}

func TestUnknownToolEndsTurnWithFallback(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{toolCall("c1", "dropAllTables", `{}`)}},
	}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "do something"})
	if out.AssistantResponse != FallbackMessage {
		t.Fatalf("unknown tool must degrade to the fallback message, got %q", out.AssistantResponse)
	}
}

func TestProviderErrorFallback(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*llm.LLMResponse{nil},
		errs:      []error{&llm.LLMError{Type: llm.ErrorServerError, Message: "boom"}},
	}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "hello"})
	if out.AssistantResponse != FallbackMessage {
		t.Fatalf("backend failure must degrade to the fallback message, got %q", out.AssistantResponse)
	}
	if out.AssistantResponse == "" {
		t.Fatal("response must never be empty")
	}
}

func TestInvalidArgumentsAreRecoverable(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{
			// addProperty requires an address.
			toolCall("c1", "addProperty", `{"name":"Plot 1"}`),
		}},
		finalAnswer("I need an address to add that property."),
	}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "add plot 1"})
	if out.AssistantResponse != "I need an address to add that property." {
		t.Fatalf("validation failure should not end the conversation: %q", out.AssistantResponse)
	}

	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "invalid arguments") || !strings.Contains(last.Content, "address") {
		t.Fatalf("the model should be told what was wrong: %s", last.Content)
	}
}

func TestMalformedToolOutputIsFatal(t *testing.T) {
	broken := tool.Tool{
		Name:        "brokenTool",
		Description: "returns a shape it did not declare",
		Input:       schema.Schema{},
		Output: schema.Schema{Fields: map[string]schema.Field{
			"message": {Kind: schema.String, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"message": 42}, nil
		},
	}
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{toolCall("c1", "brokenTool", `{}`)}},
	}}
	a, _ := newTestAssistant(t, provider, broken)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "go"})
	if out.AssistantResponse != FallbackMessage {
		t.Fatalf("malformed handler output must degrade to the fallback message, got %q", out.AssistantResponse)
	}
}

func TestToolRoundCap(t *testing.T) {
	// The model keeps asking for tools and never answers.
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{toolCall("c1", "listProperties", `{}`)}},
	}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "loop forever"})
	if out.AssistantResponse != FallbackMessage {
		t.Fatalf("exhausted rounds must degrade to the fallback message, got %q", out.AssistantResponse)
	}
	if len(provider.requests) != 3 {
		t.Fatalf("expected exactly MaxToolRounds model calls, got %d", len(provider.requests))
	}
}

func TestConcurrentCallsAggregatePartialFailures(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{
			toolCall("c1", "listProperties", `{}`),
			toolCall("c2", "addProperty", `{"name":"X"}`), // missing address
		}},
		finalAnswer("done"),
	}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "do both"})
	if out.AssistantResponse != "done" {
		t.Fatalf("one bad call must not discard its sibling: %q", out.AssistantResponse)
	}

	second := provider.requests[1]
	got := map[string]string{}
	for _, m := range second.Messages {
		if m.Role == "tool" {
			got[m.ToolCallID] = m.Content
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected results for both calls, got %v", got)
	}
	if strings.Contains(got["c1"], "Error") {
		t.Fatalf("successful call should keep its result: %s", got["c1"])
	}
	if !strings.Contains(got["c2"], "invalid arguments") {
		t.Fatalf("failed call should report its error: %s", got["c2"])
	}
}

func TestEmptyFinalAnswerBecomesFallback(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{finalAnswer("")}}
	a, _ := newTestAssistant(t, provider)

	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "hm"})
	if out.AssistantResponse != FallbackMessage {
		t.Fatalf("empty model output must not reach the user: %q", out.AssistantResponse)
	}
}

func TestHistoryPersistsAcrossTurns(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.LLMResponse{
		finalAnswer("Noted."),
		finalAnswer("As I said, noted."),
	}}
	a, st := newTestAssistant(t, provider)
	ctx := context.Background()

	a.ChatWithAssistant(ctx, ChatInput{ChatID: "c1", UserMessage: "remember the rent is due"})
	a.ChatWithAssistant(ctx, ChatInput{ChatID: "c1", UserMessage: "what did I just say?"})

	history, err := st.History(ctx, "c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 persisted messages, got %d", len(history))
	}

	// The second model call must include the first exchange.
	second := provider.requests[1]
	var sawFirst bool
	for _, m := range second.Messages {
		if m.Content == "remember the rent is due" {
			sawFirst = true
		}
	}
	if !sawFirst {
		t.Fatal("prior turn was not replayed into the model context")
	}
}

func TestFallbackProviderChainReachesAssistant(t *testing.T) {
	failing := &scriptedProvider{
		responses: []*llm.LLMResponse{nil},
		errs:      []error{&llm.LLMError{Type: llm.ErrorServerError, Message: "overloaded"}},
	}
	working := &scriptedProvider{responses: []*llm.LLMResponse{finalAnswer("hello from backup")}}

	a, _ := newTestAssistant(t, llm.NewFallbackProvider(failing, working))
	out := a.ChatWithAssistant(context.Background(), ChatInput{UserMessage: "hi"})
	if out.AssistantResponse != "hello from backup" {
		t.Fatalf("fallback chain did not engage: %q", out.AssistantResponse)
	}
}
