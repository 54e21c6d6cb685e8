// Package bus carries messages between chat channels and the agent loop.
package bus

type Channel string

const (
	ChannelTelegram  Channel = "telegram"
	ChannelSlack     Channel = "slack"
	ChannelWebSocket Channel = "websocket"
	ChannelCLI       Channel = "cli"
)
