package channels

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/config"
)

// Manager owns all enabled channels and routes outbound messages.
type Manager struct {
	channels map[bus.Channel]Channel
	outbound *bus.ChannelBus
}

// NewManager creates a Manager and initialises all enabled channels.
func NewManager(cfg *config.Config, inbound *bus.AgentBus, outbound *bus.ChannelBus) *Manager {
	m := &Manager{
		channels: make(map[bus.Channel]Channel),
		outbound: outbound,
	}

	if cfg.Channels.Telegram.Enabled {
		m.Register(NewTelegramChannel(&cfg.Channels.Telegram, inbound))
	}
	if cfg.Channels.Slack.Enabled {
		m.Register(NewSlackChannel(&cfg.Channels.Slack, inbound))
	}
	if cfg.Channels.WebSocket.Enabled {
		addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
		m.Register(NewWebSocketChannel(&cfg.Channels.WebSocket, addr, inbound))
	}

	return m
}

// Register adds ch, replacing any channel with the same name.
func (m *Manager) Register(ch Channel) {
	m.channels[ch.Name()] = ch
	slog.Info("channel enabled", "name", ch.Name())
}

// EnabledChannels returns the names of all enabled channels.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, string(n))
	}
	return names
}

// StartAll starts all channels concurrently and dispatches outbound messages.
// Blocks until ctx is cancelled.
func (m *Manager) StartAll(ctx context.Context) error {
	go m.dispatchOutbound(ctx)

	for name, ch := range m.channels {
		go func(n bus.Channel, c Channel) {
			slog.Info("starting channel", "name", n)
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("channel exited with error", "name", n, "err", err)
			}
		}(name, ch)
	}

	<-ctx.Done()
	return ctx.Err()
}

// dispatchOutbound routes each outbound message to its channel's Send.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-m.outbound.Subscribe():
			ch, ok := m.channels[msg.Channel()]
			if !ok {
				slog.Debug("unknown channel for outbound message", "channel", msg.Channel())
				continue
			}
			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("send error", "channel", msg.Channel(), "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
