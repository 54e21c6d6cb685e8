package providers

import (
	"strings"

	"github.com/pandaai/panda/internal/schema"
)

// Part is one unit of message content: text, or inline binary data.
type Part struct {
	Text     string
	MimeType string // set for inline parts
	Data     []byte // raw bytes; encoded to base64 on the wire
}

// TextPart returns a text-only part.
func TextPart(s string) Part { return Part{Text: s} }

// InlinePart returns a binary part carrying mimeType and data.
func InlinePart(mimeType string, data []byte) Part {
	return Part{MimeType: mimeType, Data: data}
}

// IsInline reports whether the part carries binary data.
func (p Part) IsInline() bool { return p.Data != nil }

// Message is a provider-neutral request message.
type Message struct {
	Role  schema.Role
	Parts []Part
}

// Text concatenates the text parts of m.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if !p.IsInline() {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Multimodal reports whether m needs a part list rather than a plain string.
func (m Message) Multimodal() bool {
	if len(m.Parts) > 1 {
		return true
	}
	return len(m.Parts) == 1 && m.Parts[0].IsInline()
}

// CompletionRequest is built fresh for every call and never persisted.
// Messages[0] is the system persona when one is present.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// WithModel returns a copy of r targeting model.
func (r CompletionRequest) WithModel(model string) CompletionRequest {
	r.Model = model
	return r
}

// System returns the system prompt, or "".
func (r CompletionRequest) System() string {
	if len(r.Messages) > 0 && r.Messages[0].Role == schema.RoleSystem {
		return r.Messages[0].Text()
	}
	return ""
}

// conversation returns the messages after the system prompt.
func (r CompletionRequest) conversation() []Message {
	if len(r.Messages) > 0 && r.Messages[0].Role == schema.RoleSystem {
		return r.Messages[1:]
	}
	return r.Messages
}
