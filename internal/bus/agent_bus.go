package bus

import "context"

// AgentBus carries messages from channels → agent.
// Channel adapters call Publish; the agent loop reads via Subscribe.
type AgentBus struct {
	ch chan AgentBusMessage
}

func NewAgentBus(bufSize int) *AgentBus {
	return &AgentBus{ch: make(chan AgentBusMessage, bufSize)}
}

// Publish delivers a message to the agent. It blocks while the buffer is
// full and gives up when ctx is done.
func (b *AgentBus) Publish(ctx context.Context, msg AgentBusMessage) error {
	select {
	case b.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a receive-only view of the inbound channel.
func (b *AgentBus) Subscribe() <-chan AgentBusMessage {
	return b.ch
}

func (b *AgentBus) Len() int { return len(b.ch) }
