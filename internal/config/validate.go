package config

import (
	"strings"

	"github.com/pandaai/panda/internal/schema"
)

// Validate checks the settings a live call depends on. It fails fast with an
// ErrConfiguration error so a bad key is reported before any request.
// Mock mode needs no credentials.
func (c *Config) Validate() error {
	if c.Provider.Name != "" && c.ResolveProvider() == nil {
		return schema.NewError(schema.ErrConfiguration, "unknown provider %q", c.Provider.Name)
	}
	if c.Chat.HistoryWindow < 1 {
		return schema.NewError(schema.ErrConfiguration, "chat.historyWindow must be at least 1")
	}
	if c.Chat.MaxTokens < 1 {
		return schema.NewError(schema.ErrConfiguration, "chat.maxTokens must be positive")
	}
	if c.Mock.Enabled {
		return nil
	}

	key := c.Provider.APIKey
	if strings.TrimSpace(key) == "" {
		return schema.NewError(schema.ErrConfiguration,
			"%s is not set; add it to .env or provider.apiKey in %s, or set %s=true", EnvAPIKey, ConfigPath(), EnvMockMode)
	}
	if strings.ContainsAny(key, "\"'`") {
		return schema.NewError(schema.ErrConfiguration,
			"%s contains quote characters; remove the quotes around the value", EnvAPIKey)
	}
	return nil
}
