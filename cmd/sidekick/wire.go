package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sidekick/cmd/sidekick/chat"
	"sidekick/internal/agent"
	"sidekick/internal/bus"
	"sidekick/internal/config"
	"sidekick/internal/controller"
	"sidekick/internal/history"
	"sidekick/internal/identity"
	"sidekick/internal/storage"
	"sidekick/internal/title"
	"sidekick/internal/transcript"
)

// app bundles the wired application graph.
type app struct {
	Controller *controller.Controller
	Surface    *chat.Surface
	History    *history.Store
	Account    identity.Account

	kv      *storage.SQLiteKV
	watcher *config.Watcher
}

// buildApp wires config, storage, identity, agents and the controller.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if headless {
		cfg.Chat.Headless = true
	}
	path := cfg.Storage.Path
	if dbPath != "" {
		path = dbPath
	}

	kv, err := storage.OpenSQLite(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	store := history.New(kv, cfg.Storage.BudgetKB*1024, logger)

	account := identity.Account{
		Authenticated: cfg.Account.Endpoint != "" && cfg.Account.Username != "",
		Endpoint:      cfg.Account.Endpoint,
		Username:      cfg.Account.Username,
	}
	if !account.Authenticated {
		logger.Info("no account configured, chat history will not be saved")
	}

	agents, regen, titles, err := buildAgents(ctx, cfg)
	if err != nil {
		kv.Close()
		return nil, err
	}

	configTopic := bus.NewTopic[*config.Config]()
	var watcher *config.Watcher
	if configPath != "" {
		watcher, err = config.Watch(configPath, configTopic, logger)
		if err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		}
	}

	surface := chat.NewSurface()
	ctrl := controller.New(controller.Deps{
		Agents:      agents,
		Regenerator: regen,
		History:     store,
		Identity:    identity.Static{Account: account},
		View:        surface,
		Titles:      titles,
		Config:      cfg,
		Logger:      logger,
		ConfigTopic: configTopic,
	})

	return &app{
		Controller: ctrl,
		Surface:    surface,
		History:    store,
		Account:    account,
		kv:         kv,
		watcher:    watcher,
	}, nil
}

// buildAgents picks the Gemini backend when an API key is configured,
// falling back to the offline scripted agent so the TUI stays usable
// without credentials.
func buildAgents(ctx context.Context, cfg *config.Config) (agent.Resolver, agent.Regenerator, *title.Summarizer, error) {
	if cfg.LLM.APIKey == "" {
		logger.Info("no API key configured, running the offline demo agent")
		scripted := &agent.Scripted{}
		resolver := agent.ResolverFunc(func(string, transcript.Intent) (agent.Agent, error) {
			return scripted, nil
		})
		return resolver, scripted, nil, nil
	}

	gemini, err := agent.NewGemini(ctx, cfg.LLM.APIKey, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize model backend: %w", err)
	}
	resolver := agent.ResolverFunc(func(string, transcript.Intent) (agent.Agent, error) {
		return gemini, nil
	})
	titles := title.New(gemini, cfg.FastModel(), cfg.Chat.TitleMinLength, cfg.Chat.Headless, logger)
	return resolver, gemini, titles, nil
}

// Close tears the graph down in dependency order.
func (a *app) Close() {
	a.Controller.Dispose()
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.kv != nil {
		_ = a.kv.Close()
	}
}
