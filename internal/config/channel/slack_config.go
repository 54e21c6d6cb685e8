package channel

// SlackConfig configures the Slack channel (Socket Mode).
type SlackConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	BotToken      string   `json:"botToken" yaml:"botToken"`
	AppToken      string   `json:"appToken" yaml:"appToken"`
	ReplyInThread bool     `json:"replyInThread" yaml:"replyInThread"`
	ReactEmoji    string   `json:"reactEmoji" yaml:"reactEmoji"`   // acknowledgement reaction; empty = none
	GroupPolicy   string   `json:"groupPolicy" yaml:"groupPolicy"` // "open" | "mention"
	AllowFrom     []string `json:"allowFrom" yaml:"allowFrom"`
}

func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		ReplyInThread: true,
		ReactEmoji:    "panda_face",
		GroupPolicy:   "mention",
		AllowFrom:     []string{},
	}
}
