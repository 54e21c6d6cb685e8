package config

import (
	"strings"

	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/schema"
)

// ResolveProvider returns the registry entry for the configured provider.
//
// Priority:
//  1. Explicit provider name
//  2. API key prefix / API base keyword
//  3. OpenRouter
//
// It returns nil only when an explicit name is unknown.
func (c *Config) ResolveProvider() *providers.ProviderSpec {
	if c.Provider.Name != "" {
		return providers.FindByName(c.Provider.Name)
	}
	if s := providers.Detect(c.Provider.APIKey, c.Provider.APIBase); s != nil {
		return s
	}
	return providers.FindByName("openrouter")
}

// FallbackModel returns the model used after a model-related failure.
func (c *Config) FallbackModel() string {
	if c.Provider.DefaultModel != "" {
		return c.Provider.DefaultModel
	}
	if s := c.ResolveProvider(); s != nil {
		return s.DefaultModel
	}
	return ""
}

// EffectiveModel returns the model a turn targets when the caller does not
// choose one.
func (c *Config) EffectiveModel() string {
	if c.Provider.Model != "" {
		return c.Provider.Model
	}
	return c.FallbackModel()
}

// Language returns the configured default reply language.
func (c *Config) Language() schema.Language {
	return schema.ParseLanguage(c.Chat.Language)
}

// KeyFingerprint returns a loggable form of the API key.
func (c *Config) KeyFingerprint() string {
	k := c.Provider.APIKey
	switch {
	case k == "":
		return "(not set)"
	case len(k) <= 10:
		return strings.Repeat("*", len(k))
	default:
		return k[:6] + "…" + k[len(k)-4:]
	}
}
