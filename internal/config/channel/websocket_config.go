package channel

// WebSocketConfig configures the browser streaming endpoint.
type WebSocketConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Path           string   `json:"path" yaml:"path"`
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins"` // empty = same origin only
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{Enabled: true, Path: "/ws", AllowedOrigins: []string{}}
}
