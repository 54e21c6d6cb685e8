package bus

import "context"

// ChannelBus carries messages from agent → channels.
// The agent loop calls Publish; the channel manager reads via Subscribe.
type ChannelBus struct {
	ch chan ChannelMessage
}

func NewChannelBus(bufSize int) *ChannelBus {
	return &ChannelBus{ch: make(chan ChannelMessage, bufSize)}
}

// Publish delivers a reply to the channel manager. It blocks while the
// buffer is full and gives up when ctx is done.
func (b *ChannelBus) Publish(ctx context.Context, msg ChannelMessage) error {
	select {
	case b.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a receive-only view of the outbound channel.
func (b *ChannelBus) Subscribe() <-chan ChannelMessage {
	return b.ch
}
