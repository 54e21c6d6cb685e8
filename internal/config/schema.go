// Package config defines the configuration schema for panda.
//
// JSON and YAML keys use camelCase. Every section has a default so a missing
// or partial file still yields a usable Config.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pandaai/panda/internal/config/channel"
)

// ProviderConfig selects the chat-completion provider and its credentials.
type ProviderConfig struct {
	Name              string            `json:"name" yaml:"name"` // "openrouter" | "gemini" | "openai"; empty = detect from key
	APIKey            string            `json:"apiKey" yaml:"apiKey"`
	APIBase           string            `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	Model             string            `json:"model" yaml:"model"`
	DefaultModel      string            `json:"defaultModel" yaml:"defaultModel"` // fallback target
	ExtraHeaders      map[string]string `json:"extraHeaders,omitempty" yaml:"extraHeaders,omitempty"`
	ExtraBody         map[string]any    `json:"extraBody,omitempty" yaml:"extraBody,omitempty"`
	MaxRetries        int               `json:"maxRetries" yaml:"maxRetries"`
	RequestsPerMinute int               `json:"requestsPerMinute" yaml:"requestsPerMinute"`
	TimeoutSeconds    int               `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

func defaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		ExtraHeaders:   map[string]string{"X-Title": "Panda AI"},
		MaxRetries:     3,
		TimeoutSeconds: 120,
	}
}

// ChatConfig holds the fixed generation parameters and request-shaping limits.
type ChatConfig struct {
	HistoryWindow int     `json:"historyWindow" yaml:"historyWindow"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
	TopP          float64 `json:"topP" yaml:"topP"`
	MaxTokens     int     `json:"maxTokens" yaml:"maxTokens"`
	MaxImageBytes int64   `json:"maxImageBytes" yaml:"maxImageBytes"`
	Stream        bool    `json:"stream" yaml:"stream"`
	Language      string  `json:"language" yaml:"language"`
}

func defaultChatConfig() ChatConfig {
	return ChatConfig{
		HistoryWindow: 4,
		Temperature:   0.7,
		TopP:          0.9,
		MaxTokens:     2048,
		MaxImageBytes: 4 << 20,
		Stream:        true,
		Language:      "en",
	}
}

// MockConfig controls the offline canned-response mode.
type MockConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	DelayMs  int    `json:"delayMs" yaml:"delayMs"`
	Response string `json:"response,omitempty" yaml:"response,omitempty"`
}

func defaultMockConfig() MockConfig {
	return MockConfig{DelayMs: 600}
}

// DocsConfig points at the document-processing service.
type DocsConfig struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl"`
	MaxUploadBytes int64  `json:"maxUploadBytes" yaml:"maxUploadBytes"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

func defaultDocsConfig() DocsConfig {
	return DocsConfig{
		BaseURL:        "http://localhost:5000",
		MaxUploadBytes: 5 << 20,
		TimeoutSeconds: 120,
	}
}

// SessionsConfig controls conversation persistence and pruning.
type SessionsConfig struct {
	Dir           string `json:"dir" yaml:"dir"`
	RetentionDays int    `json:"retentionDays" yaml:"retentionDays"` // 0 disables pruning
	PruneSchedule string `json:"pruneSchedule" yaml:"pruneSchedule"` // cron spec
}

func defaultSessionsConfig() SessionsConfig {
	return SessionsConfig{
		Dir:           "~/.panda/sessions",
		RetentionDays: 30,
		PruneSchedule: "@daily",
	}
}

// GatewayConfig holds `panda serve` settings.
type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Host: "127.0.0.1", Port: 18790}
}

// Config is the root configuration object.
type Config struct {
	Provider ProviderConfig         `json:"provider" yaml:"provider"`
	Chat     ChatConfig             `json:"chat" yaml:"chat"`
	Mock     MockConfig             `json:"mock" yaml:"mock"`
	Docs     DocsConfig             `json:"docs" yaml:"docs"`
	Sessions SessionsConfig         `json:"sessions" yaml:"sessions"`
	Gateway  GatewayConfig          `json:"gateway" yaml:"gateway"`
	Channels channel.ChannelsConfig `json:"channels" yaml:"channels"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Provider: defaultProviderConfig(),
		Chat:     defaultChatConfig(),
		Mock:     defaultMockConfig(),
		Docs:     defaultDocsConfig(),
		Sessions: defaultSessionsConfig(),
		Gateway:  defaultGatewayConfig(),
		Channels: channel.DefaultChannelsConfig(),
	}
}

// SessionsPath returns the expanded sessions directory.
func (c *Config) SessionsPath() string {
	return expandHome(c.Sessions.Dir)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
