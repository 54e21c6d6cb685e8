package channel

// ChannelsConfig groups the chat surfaces `panda serve` can expose.
type ChannelsConfig struct {
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	Slack     SlackConfig     `json:"slack" yaml:"slack"`
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket"`
}

func DefaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{
		Telegram:  DefaultTelegramConfig(),
		Slack:     DefaultSlackConfig(),
		WebSocket: DefaultWebSocketConfig(),
	}
}
