package config

// Config is the top-level application configuration.
type Config struct {
	Assistant   AssistantConfig `json:"assistant"`
	LLM         LLMConfig       `json:"llm"`
	FallbackLLM *LLMConfig      `json:"fallback_llm,omitempty"`
	Channels    ChannelsConfig  `json:"channels"`
	Security    SecurityConfig  `json:"security"`
	Store       StoreConfig     `json:"store"`
}

type AssistantConfig struct {
	SystemPrompt     string  `json:"system_prompt"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	MaxToolRounds    int     `json:"max_tool_rounds"`
	HistoryLimit     int     `json:"history_limit"`
	ModelTimeoutSecs int     `json:"model_timeout_secs"`
	ToolTimeoutSecs  int     `json:"tool_timeout_secs"`
}

type LLMConfig struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	APIKey      string `json:"api_key,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	MaxRetries  int    `json:"max_retries"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type ChannelsConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token      string  `json:"token"`
	AllowedIDs []int64 `json:"allowed_ids,omitempty"`
}

type SecurityConfig struct {
	PIIFiltering PIIFilterConfig `json:"pii_filtering"`
}

// PIIFilterConfig controls which patterns are redacted from server logs.
type PIIFilterConfig struct {
	Enabled      bool `json:"enabled"`
	FilterEmails bool `json:"filter_emails"`
	FilterPhones bool `json:"filter_phones"`
	FilterCards  bool `json:"filter_cards"`
}

type StoreConfig struct {
	Path string `json:"path,omitempty"` // defaults to ~/.propdesk/propdesk.db
}
