package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"propdesk/internal/assistant"
	"propdesk/internal/channel"
	"propdesk/internal/config"
	"propdesk/internal/eventbus"
	"propdesk/internal/llm"
	"propdesk/internal/security"
	"propdesk/internal/store"
	"propdesk/internal/tool"
)

const (
	keyringPlaceholder      = "[keyring]"
	secretNameLLMKey        = "llm_api_key"
	secretNameFallbackKey   = "fallback_llm_api_key"
	secretNameTelegramToken = "telegram_token"
)

// App wires the assistant, its store, and the channels together.
type App struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       *config.Config
	cfgLoader *config.Loader
	bus       *eventbus.Bus
	assistant *assistant.Assistant
	chanMgr   *channel.Manager
	store     store.Store
	keyStore  *security.KeyStore
	redactor  *security.Redactor
}

// NewApp creates the application shell.
func NewApp() *App {
	return &App{
		bus:     eventbus.New(),
		chanMgr: channel.NewManager(),
	}
}

// Startup loads config, opens the store, and brings up the assistant and
// channels. It returns an error only for failures nothing can run without.
func (a *App) Startup(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.ctx = ctx
	a.cancel = cancel

	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("config loader: %w", err)
	}
	a.cfgLoader = loader

	cfg, err := loader.Load()
	if err != nil {
		log.Printf("[app] failed to load config, using defaults: %v", err)
		cfg = config.Defaults()
	}
	a.cfg = cfg

	ks, err := security.NewKeyStore()
	if err != nil {
		log.Printf("[app] warning: no key store available, secrets stay in config: %v", err)
	}
	a.keyStore = ks
	a.resolveSecrets()

	a.redactor = security.NewRedactor(cfg.Security.PIIFiltering)

	dbPath := cfg.Store.Path
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".propdesk", "propdesk.db")
	}
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st

	a.bus.Subscribe(eventbus.TopicError, func(e eventbus.Event) {
		log.Printf("[app] assistant error: %v", e.Payload)
	})

	if err := a.initAssistant(); err != nil {
		return err
	}

	a.registerChannels()
	if err := a.chanMgr.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	a.bus.Publish(eventbus.TopicStatusChange, "running")
	log.Println("[app] PropDesk assistant is running")
	return nil
}

// Shutdown stops channels and closes the store.
func (a *App) Shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.bus.Publish(eventbus.TopicStatusChange, "stopping")
	if a.chanMgr != nil {
		a.chanMgr.StopAll(ctx)
	}
	if a.store != nil {
		a.store.Close()
	}
}

func (a *App) initAssistant() error {
	if a.cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured; set llm.api_key in %s", a.cfgLoader.FilePath())
	}

	provider, err := llm.NewProvider(a.cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	if a.cfg.FallbackLLM != nil && a.cfg.FallbackLLM.APIKey != "" {
		if fallback, err := llm.NewProvider(*a.cfg.FallbackLLM); err == nil {
			provider = llm.NewFallbackProvider(provider, fallback)
		} else {
			log.Printf("[app] fallback provider misconfigured, ignoring: %v", err)
		}
	}

	registry, err := tool.NewRegistry(tool.Defaults(a.store)...)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	a.assistant = assistant.New(a.cfg.Assistant, provider, registry, a.store, a.bus)
	return nil
}

// registerChannels adds the console channel and, when configured, Telegram.
// Every inbound message goes through the assistant's single entry point.
func (a *App) registerChannels() {
	a.chanMgr.Register(channel.NewConsoleChannel())

	if tg := a.cfg.Channels.Telegram; tg != nil && tg.Token != "" {
		a.chanMgr.Register(channel.NewTelegramChannel(channel.TelegramConfig{
			Token:      tg.Token,
			AllowedIDs: tg.AllowedIDs,
		}))
	}

	a.chanMgr.Each(func(ch channel.Channel) {
		ch.OnMessage(func(msg channel.InboundMessage) {
			a.handleInbound(ch, msg)
		})
	})
}

func (a *App) handleInbound(ch channel.Channel, msg channel.InboundMessage) {
	log.Printf("[app] %s message from %s: %s", msg.ChannelName, msg.SenderName, a.redactor.Redact(msg.Text))
	a.bus.Publish(eventbus.TopicInboundMessage, msg)

	out := a.assistant.ChatWithAssistant(a.ctx, assistant.ChatInput{
		ChatID:      msg.ChannelName + ":" + msg.ChatID,
		UserMessage: msg.Text,
	})

	reply := channel.OutboundMessage{ChatID: msg.ChatID, Text: out.AssistantResponse}
	a.bus.Publish(eventbus.TopicOutboundMessage, reply)

	if err := ch.Send(a.ctx, reply); err != nil {
		log.Printf("[app] failed to send reply on %s: %v", msg.ChannelName, err)
	}
}

// resolveSecrets loads secrets from the key store into in-memory config.
// Plaintext secrets found in config.json are migrated to the key store and
// replaced on disk with a placeholder.
func (a *App) resolveSecrets() {
	if a.keyStore == nil {
		return
	}

	migrated := false
	migrated = a.resolveSecret(&a.cfg.LLM.APIKey, secretNameLLMKey) || migrated
	if a.cfg.FallbackLLM != nil {
		migrated = a.resolveSecret(&a.cfg.FallbackLLM.APIKey, secretNameFallbackKey) || migrated
	}
	if a.cfg.Channels.Telegram != nil {
		migrated = a.resolveSecret(&a.cfg.Channels.Telegram.Token, secretNameTelegramToken) || migrated
	}

	if migrated {
		if err := a.saveConfigWithPlaceholders(); err != nil {
			log.Printf("[app] warning: failed to rewrite config after secret migration: %v", err)
		}
	}
}

// resolveSecret swaps a placeholder for the stored value, or stores a
// plaintext value. Returns true when a plaintext secret was migrated.
func (a *App) resolveSecret(field *string, name string) bool {
	switch {
	case *field == keyringPlaceholder:
		val, err := a.keyStore.Get(name)
		if err != nil {
			log.Printf("[app] warning: failed to read %s from key store: %v", name, err)
			return false
		}
		*field = val
		return false
	case *field != "":
		if err := a.keyStore.Set(name, *field); err != nil {
			return false
		}
		log.Printf("[app] migrated %s (%s) to secure storage", name, security.MaskKey(*field))
		return true
	default:
		return false
	}
}

// saveConfigWithPlaceholders writes config to disk with secrets replaced by
// the [keyring] placeholder. In-memory config keeps the real values.
func (a *App) saveConfigWithPlaceholders() error {
	cfgForDisk := *a.cfg
	if cfgForDisk.LLM.APIKey != "" {
		cfgForDisk.LLM.APIKey = keyringPlaceholder
	}
	if cfgForDisk.FallbackLLM != nil && cfgForDisk.FallbackLLM.APIKey != "" {
		fb := *cfgForDisk.FallbackLLM
		fb.APIKey = keyringPlaceholder
		cfgForDisk.FallbackLLM = &fb
	}
	if cfgForDisk.Channels.Telegram != nil && cfgForDisk.Channels.Telegram.Token != "" {
		tg := *cfgForDisk.Channels.Telegram
		tg.Token = keyringPlaceholder
		cfgForDisk.Channels.Telegram = &tg
	}
	return a.cfgLoader.Save(&cfgForDisk)
}
