package assistant

import (
	"context"
	"log"

	"propdesk/internal/config"
	"propdesk/internal/eventbus"
	"propdesk/internal/llm"
	"propdesk/internal/store"
	"propdesk/internal/tool"
)

// FallbackMessage is the fixed reply returned whenever a turn fails
// internally. Users never see raw errors.
const FallbackMessage = "I'm sorry, an error occurred. Please try rephrasing your request."

// Assistant coordinates one conversational turn at a time: model call,
// tool dispatch, and the final reply. It holds no per-turn state, so
// concurrent turns from different conversations are safe.
type Assistant struct {
	cfg      config.AssistantConfig
	provider llm.Provider
	registry *tool.Registry
	store    store.Store
	bus      *eventbus.Bus
}

// New creates an Assistant. The registry must already be fully built; it is
// treated as read-only from here on.
func New(
	cfg config.AssistantConfig,
	provider llm.Provider,
	registry *tool.Registry,
	st store.Store,
	bus *eventbus.Bus,
) *Assistant {
	return &Assistant{
		cfg:      cfg,
		provider: provider,
		registry: registry,
		store:    st,
		bus:      bus,
	}
}

// ChatInput is one user utterance. ChatID groups utterances into a
// conversation; an empty ChatID falls back to a shared default conversation.
type ChatInput struct {
	ChatID      string
	UserMessage string
}

// ChatOutput carries the reply. AssistantResponse is always non-empty.
type ChatOutput struct {
	AssistantResponse string
}

// ChatWithAssistant is the single entry point for presentation layers.
// It never returns an error and never panics out: every internal failure
// degrades to FallbackMessage.
func (a *Assistant) ChatWithAssistant(ctx context.Context, in ChatInput) (out ChatOutput) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[assistant] panic recovered in turn: %v", r)
			out = ChatOutput{AssistantResponse: FallbackMessage}
		}
	}()

	chatID := in.ChatID
	if chatID == "" {
		chatID = "default"
	}

	reply, err := a.runTurn(ctx, chatID, in.UserMessage)
	if err != nil {
		log.Printf("[assistant] turn failed: %v", err)
		a.bus.Publish(eventbus.TopicError, err)
		return ChatOutput{AssistantResponse: FallbackMessage}
	}
	if reply == "" {
		return ChatOutput{AssistantResponse: FallbackMessage}
	}

	a.bus.Publish(eventbus.TopicTurnComplete, chatID)
	return ChatOutput{AssistantResponse: reply}
}
