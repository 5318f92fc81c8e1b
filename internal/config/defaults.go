package config

const defaultSystemPrompt = "You are PropDesk, an assistant for a property-management business. " +
	"You help with properties, rentals, installment sales, and day-to-day business tasks. " +
	"Use the provided tools to read or change business data; never invent property records. " +
	"When the user refers to a property by name, pass identifierType \"name\"; " +
	"when they give an id, pass identifierType \"id\". " +
	"Answer in short, plain sentences and confirm every change you make."

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Assistant: AssistantConfig{
			SystemPrompt:     defaultSystemPrompt,
			MaxTokens:        2048,
			Temperature:      0.4,
			MaxToolRounds:    5,
			HistoryLimit:     30,
			ModelTimeoutSecs: 120,
			ToolTimeoutSecs:  30,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxRetries:  3,
			TimeoutSecs: 120,
		},
		Channels: ChannelsConfig{},
		Security: SecurityConfig{
			PIIFiltering: PIIFilterConfig{
				Enabled:      true,
				FilterEmails: true,
				FilterPhones: true,
				FilterCards:  true,
			},
		},
		Store: StoreConfig{},
	}
}
