package bus

import (
	"time"

	"github.com/pandaai/panda/internal/schema"
)

// AgentBusMessage is a user message received from a chat channel.
type AgentBusMessage struct {
	channel     Channel
	chatId      string // chat / channel / connection identifier
	senderId    string // user identifier within the channel
	routingKey  string // optional override; empty means channel:chatId
	content     string
	timestamp   time.Time
	attachments []schema.Attachment
	language    schema.Language // empty = session default
	model       string          // empty = configured model
	stream      bool            // the channel renders reply chunks as they arrive
	metadata    map[string]any  // channel-specific extra data (message_id, thread_ts, …)
}

// NewAgentBusMessage creates a message with Timestamp set to now.
// routingKey overrides the default "channel:chatId" session key; pass "" to use the default.
func NewAgentBusMessage(channel Channel, senderId, chatId, content, routingKey string) AgentBusMessage {
	return AgentBusMessage{
		channel:    channel,
		senderId:   senderId,
		chatId:     chatId,
		content:    content,
		routingKey: routingKey,
		timestamp:  time.Now(),
	}
}

func (m AgentBusMessage) ChatId() string                   { return m.chatId }
func (m AgentBusMessage) SenderId() string                 { return m.senderId }
func (m AgentBusMessage) Content() string                  { return m.content }
func (m AgentBusMessage) Channel() Channel                 { return m.channel }
func (m AgentBusMessage) Timestamp() time.Time             { return m.timestamp }
func (m AgentBusMessage) Attachments() []schema.Attachment { return m.attachments }
func (m AgentBusMessage) Language() schema.Language        { return m.language }
func (m AgentBusMessage) Model() string                    { return m.model }
func (m AgentBusMessage) Stream() bool                     { return m.stream }
func (m AgentBusMessage) Metadata() map[string]any         { return m.metadata }

func (m *AgentBusMessage) SetAttachments(a []schema.Attachment) { m.attachments = a }
func (m *AgentBusMessage) SetLanguage(lang schema.Language)     { m.language = lang }
func (m *AgentBusMessage) SetModel(model string)                { m.model = model }
func (m *AgentBusMessage) SetStream(stream bool)                { m.stream = stream }
func (m *AgentBusMessage) SetMetadata(md map[string]any)        { m.metadata = md }

// RoutingKey returns the key used to look up the conversation session.
func (m AgentBusMessage) RoutingKey() string {
	if m.routingKey != "" {
		return m.routingKey
	}
	return RoutingKey(m.channel, m.chatId)
}

// Preview returns a short snippet of the content for logging.
func (m AgentBusMessage) Preview() string {
	r := []rune(m.content)
	if len(r) > 80 {
		return string(r[:80]) + "..."
	}
	return m.content
}
