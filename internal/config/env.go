package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Recognised environment variables.
const (
	EnvAPIKey       = "API_KEY"
	EnvMockMode     = "MOCK_MODE"
	EnvDefaultModel = "DEFAULT_MODEL_ID"
	EnvProvider     = "PANDA_PROVIDER"
	EnvModel        = "PANDA_MODEL"
	EnvDocsURL      = "PANDA_DOCS_URL"
)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		slog.Debug("loaded env file", "path", f)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto c. Pass nil to read the
// process environment.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(EnvAPIKey); ok {
		c.Provider.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDefaultModel); ok && strings.TrimSpace(v) != "" {
		c.Provider.DefaultModel = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvProvider); ok && strings.TrimSpace(v) != "" {
		c.Provider.Name = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvModel); ok && strings.TrimSpace(v) != "" {
		c.Provider.Model = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDocsURL); ok && strings.TrimSpace(v) != "" {
		c.Docs.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvMockMode); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			slog.Warn("ignoring invalid boolean", "var", EnvMockMode, "value", v)
		} else {
			c.Mock.Enabled = b
		}
	}
}
