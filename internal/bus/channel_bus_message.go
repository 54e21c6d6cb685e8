package bus

// MessageKind tells a channel how to render an outbound message.
type MessageKind string

const (
	KindChunk MessageKind = "chunk" // one streamed fragment of a reply
	KindDone  MessageKind = "done"  // the complete reply
	KindError MessageKind = "error" // localized failure text
)

// ChannelMessage is a reply to be sent back through a channel.
type ChannelMessage struct {
	kind      MessageKind
	channel   Channel
	chatId    string
	content   string
	messageId string         // assistant message ID within the session
	metadata  map[string]any // channel-specific hints (thread_ts, message_id, …)
}

func (m ChannelMessage) Kind() MessageKind        { return m.kind }
func (m ChannelMessage) Channel() Channel         { return m.channel }
func (m ChannelMessage) ChatId() string           { return m.chatId }
func (m ChannelMessage) Content() string          { return m.content }
func (m ChannelMessage) MessageId() string        { return m.messageId }
func (m ChannelMessage) Metadata() map[string]any { return m.metadata }

// Final reports whether the message ends a turn.
func (m ChannelMessage) Final() bool { return m.kind != KindChunk }

func NewChannelMessage(channel Channel, chatId, content string) ChannelMessage {
	return ChannelMessage{
		kind:    KindDone,
		channel: channel,
		chatId:  chatId,
		content: content,
	}
}

type ChannelMessageBuilder struct {
	msg ChannelMessage
}

func NewChannelMessageBuilder(channel Channel, chatId, content string) *ChannelMessageBuilder {
	return &ChannelMessageBuilder{msg: NewChannelMessage(channel, chatId, content)}
}

func (b *ChannelMessageBuilder) Kind(kind MessageKind) *ChannelMessageBuilder {
	b.msg.kind = kind
	return b
}

func (b *ChannelMessageBuilder) MessageId(id string) *ChannelMessageBuilder {
	b.msg.messageId = id
	return b
}

func (b *ChannelMessageBuilder) Metadata(md map[string]any) *ChannelMessageBuilder {
	b.msg.metadata = md
	return b
}

func (b *ChannelMessageBuilder) Build() ChannelMessage {
	return b.msg
}
