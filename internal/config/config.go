// Package config loads sidekick configuration from YAML with environment
// overrides, and watches the file for changes so running sessions can
// pick up a new model catalog without restarting.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sidekick/internal/history"
	"sidekick/internal/title"
)

// ModelInfo describes one entry of the model catalog.
type ModelInfo struct {
	ID string `yaml:"id"`

	// Fast tags a model suitable for cheap side tasks such as title
	// generation.
	Fast bool `yaml:"fast,omitempty"`

	// Default marks the model used when a session has none selected.
	Default bool `yaml:"default,omitempty"`
}

// LLMConfig configures the response-generating backend.
type LLMConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
}

// ChatConfig holds the session-controller knobs.
type ChatConfig struct {
	// TitleMinLength is the minimum first-message length that triggers
	// title generation.
	TitleMinLength int `yaml:"title_min_length"`

	// Headless disables best-effort side tasks (title generation) for
	// test and scripted runs.
	Headless bool `yaml:"headless,omitempty"`
}

// StorageConfig configures the keyed store.
type StorageConfig struct {
	Path     string `yaml:"path,omitempty"`
	BudgetKB int    `yaml:"budget_kb"`
}

// AccountConfig identifies the server and user the CLI acts as.
type AccountConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// Config is the root configuration.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Models  []ModelInfo   `yaml:"models"`
	LLM     LLMConfig     `yaml:"llm"`
	Chat    ChatConfig    `yaml:"chat"`
	Storage StorageConfig `yaml:"storage"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Models: []ModelInfo{
			{ID: "gemini-2.5-pro", Default: true},
			{ID: "gemini-2.5-flash", Fast: true},
		},
		Chat: ChatConfig{TitleMinLength: title.DefaultMinInputLength},
		Storage: StorageConfig{
			Path:     filepath.Join(home, ".sidekick", "sidekick.db"),
			BudgetKB: history.DefaultBudgetBytes / 1024,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; env
// vars win over both.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("SIDEKICK_ENDPOINT"); v != "" {
		c.Account.Endpoint = v
	}
	if v := os.Getenv("SIDEKICK_USERNAME"); v != "" {
		c.Account.Username = v
	}
	if os.Getenv("SIDEKICK_HEADLESS") == "1" {
		c.Chat.Headless = true
	}
}

// DefaultModel returns the catalog default, falling back to the first
// entry. ok is false for an empty catalog.
func (c *Config) DefaultModel() (string, bool) {
	for _, m := range c.Models {
		if m.Default {
			return m.ID, true
		}
	}
	if len(c.Models) > 0 {
		return c.Models[0].ID, true
	}
	return "", false
}

// FastModel returns the fast-tagged model, or "" when none exists.
func (c *Config) FastModel() string {
	for _, m := range c.Models {
		if m.Fast {
			return m.ID
		}
	}
	return ""
}

// HasModel reports whether id is in the catalog.
func (c *Config) HasModel(id string) bool {
	for _, m := range c.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}
