// Package channels connects chat surfaces (Telegram, Slack, browser
// WebSocket) to the agent bus.
package channels

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pandaai/panda/internal/bus"
)

// Channel is one chat surface.
type Channel interface {
	Name() bus.Channel
	// Start connects and pumps inbound messages until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers one outbound message. Channels that cannot render
	// partial replies ignore chunk messages.
	Send(ctx context.Context, msg bus.ChannelMessage) error
}

// Base holds common state and helper methods shared by all channels.
type Base struct {
	channelName bus.Channel
	inbound     *bus.AgentBus
	allowFrom   []string // empty = allow all
}

// NewBase creates a Base with the given channel name, bus, and allowlist.
func NewBase(name bus.Channel, inbound *bus.AgentBus, allowFrom []string) Base {
	return Base{channelName: name, inbound: inbound, allowFrom: allowFrom}
}

// IsAllowed checks whether senderID is on the allowlist.
// senderID may be "id|username" (Telegram) or a plain string.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, part := range strings.Split(senderID, "|") {
		if part == "" {
			continue
		}
		for _, allowed := range b.allowFrom {
			if allowed == part {
				return true
			}
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then pushes msg to the bus.
// It reports whether the message was accepted.
func (b *Base) HandleMessage(ctx context.Context, msg bus.AgentBusMessage) bool {
	if !b.IsAllowed(msg.SenderId()) {
		slog.Warn("access denied", "channel", b.channelName, "sender", msg.SenderId())
		return false
	}
	if err := b.inbound.Publish(ctx, msg); err != nil {
		slog.Debug("inbound dropped", "channel", b.channelName, "err", err)
		return false
	}
	return true
}

// splitMessage splits content into chunks of at most maxLen bytes,
// preferring newline breaks, then space breaks, then a hard cut on a rune
// boundary.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
			for pos > 0 && !utf8.RuneStart(content[pos]) {
				pos--
			}
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t\n")
	}
	return chunks
}
