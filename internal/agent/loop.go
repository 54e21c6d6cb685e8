// Package agent turns messages arriving on the bus into conversation turns
// and publishes the replies.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/chat"
	"github.com/pandaai/panda/internal/schema"
)

// Turner runs conversation turns.
type Turner interface {
	Send(ctx context.Context, in chat.TurnInput, onChunk chat.ChunkFunc) (chat.TurnResult, error)
	Reset(key string) error
}

// AgentLoop reads AgentBusMessages, runs one turn per message and publishes
// ChannelMessages. Each inbound message is handled in its own goroutine.
type AgentLoop struct {
	inbound  *bus.AgentBus
	outbound *bus.ChannelBus
	turns    Turner
	lang     schema.Language
}

// NewAgentLoop creates an AgentLoop. lang is used for command replies when
// the message carries no language.
func NewAgentLoop(inbound *bus.AgentBus, outbound *bus.ChannelBus, turns Turner, lang schema.Language) *AgentLoop {
	return &AgentLoop{inbound: inbound, outbound: outbound, turns: turns, lang: lang}
}

// Run reads from the inbound bus and processes each message in a goroutine.
// Blocks until ctx is cancelled.
func (loop *AgentLoop) Run(ctx context.Context) error {
	slog.Info("Agent loop started")

	for {
		select {
		case msg := <-loop.inbound.Subscribe():
			go loop.handleMessage(ctx, msg)
		case <-ctx.Done():
			slog.Info("Agent loop stopping")
			return ctx.Err()
		}
	}
}

func (loop *AgentLoop) handleMessage(ctx context.Context, msg bus.AgentBusMessage) {
	out := loop.processMessage(ctx, msg)
	if err := loop.outbound.Publish(ctx, out); err != nil {
		slog.Debug("reply dropped", "channel", msg.Channel(), "err", err)
	}
}

func (loop *AgentLoop) processMessage(ctx context.Context, msg bus.AgentBusMessage) bus.ChannelMessage {
	if out, ok := loop.handleSlashCommand(msg); ok {
		return out
	}

	slog.Info(
		"Processing message",
		"sender", msg.SenderId(),
		"channel", msg.Channel(),
		"session", msg.RoutingKey(),
		"attachments", len(msg.Attachments()),
		"content", msg.Preview(),
	)

	var onChunk chat.ChunkFunc
	if msg.Stream() {
		onChunk = func(frag string) {
			chunk := loop.reply(msg, frag).Kind(bus.KindChunk).Build()
			if err := loop.outbound.Publish(ctx, chunk); err != nil {
				slog.Debug("chunk dropped", "channel", msg.Channel(), "err", err)
			}
		}
	}

	res, err := loop.turns.Send(ctx, chat.TurnInput{
		SessionKey:  msg.RoutingKey(),
		Text:        msg.Content(),
		Attachments: msg.Attachments(),
		Language:    msg.Language(),
		Model:       msg.Model(),
	}, onChunk)

	b := loop.reply(msg, res.Text).MessageId(res.AssistantMessageID)
	if err != nil {
		b.Kind(bus.KindError)
	}
	slog.Info("Response", "channel", msg.Channel(), "sender", msg.SenderId(), "length", len(res.Text), "kind", schema.KindOf(err))
	return b.Build()
}

// handleSlashCommand handles /new and /help. ok is false when msg is not a
// command.
func (loop *AgentLoop) handleSlashCommand(msg bus.AgentBusMessage) (bus.ChannelMessage, bool) {
	lang := msg.Language()
	if lang == "" {
		lang = loop.lang
	}

	switch strings.ToLower(strings.TrimSpace(msg.Content())) {
	case "/new", "/reset":
		if len(msg.Attachments()) > 0 {
			return bus.ChannelMessage{}, false
		}
		err := loop.turns.Reset(msg.RoutingKey())
		switch {
		case errors.Is(err, chat.ErrTurnActive):
			return loop.reply(msg, chat.Localize(err, lang)).Kind(bus.KindError).Build(), true
		case err != nil:
			slog.Warn("reset failed", "session", msg.RoutingKey(), "err", err)
		}
		return loop.reply(msg, newChatText(lang)).Build(), true
	case "/help":
		return loop.reply(msg, helpText(lang)).Build(), true
	}
	return bus.ChannelMessage{}, false
}

func (loop *AgentLoop) reply(msg bus.AgentBusMessage, content string) *bus.ChannelMessageBuilder {
	return bus.NewChannelMessageBuilder(msg.Channel(), msg.ChatId(), content).Metadata(msg.Metadata())
}

func newChatText(lang schema.Language) string {
	if lang == schema.Hindi {
		return "🐼 नया चैट शुरू हुआ। पूछिए, मैं मदद के लिए तैयार हूँ!"
	}
	return "🐼 New chat started. Ask me anything!"
}

func helpText(lang schema.Language) string {
	if lang == schema.Hindi {
		return "🐼 पांडा एआई कमांड:\n/new — नया चैट शुरू करें\n/help — उपलब्ध कमांड दिखाएँ\n\nकोई भी प्रश्न पूछें या फ़ोटो, PDF या टेक्स्ट फ़ाइल भेजें।"
	}
	return "🐼 Panda AI commands:\n/new — Start a new chat\n/help — Show available commands\n\nAsk any question or send a photo, PDF or text file."
}
