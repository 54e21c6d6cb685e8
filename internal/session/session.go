package session

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pandaai/panda/internal/schema"
)

const titleRunes = 30

// Session holds one conversation's messages and metadata.
type Session struct {
	Key       string
	Title     string
	Language  schema.Language
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any

	messages []schema.Message
	mu       sync.Mutex
	readErr  error // set when the stored file exists but could not be read
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// AppendUser appends a user message and, for the first one, derives the title.
func (s *Session) AppendUser(content string, attachments []schema.Attachment) schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := schema.UserMessage(content)
	msg.Attachments = attachments
	s.messages = append(s.messages, msg)
	if s.Title == "" {
		s.Title = makeTitle(content, s.Language)
	}
	s.UpdatedAt = time.Now()
	return msg
}

// AppendAssistant appends an assistant message, usually an empty placeholder
// that a streaming turn then grows by ID.
func (s *Session) AppendAssistant(content string) schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := schema.AssistantMessage(content)
	s.messages = append(s.messages, msg)
	s.UpdatedAt = time.Now()
	return msg
}

// AppendContent adds fragment to the message with the given ID. It reports
// false when the message no longer exists (e.g. the session was cleared).
func (s *Session) AppendContent(id, fragment string) bool {
	return s.UpdateMessage(id, func(m *schema.Message) { m.Content += fragment })
}

// SetContent replaces the content of the message with the given ID.
func (s *Session) SetContent(id, content string) bool {
	return s.UpdateMessage(id, func(m *schema.Message) { m.Content = content })
}

// UpdateMessage applies fn to the message with the given ID. Updates are
// keyed by ID, never by position, so interleaved turns cannot clobber each
// other.
func (s *Session) UpdateMessage(id string, fn func(*schema.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Message returns a copy of the message with the given ID.
func (s *Session) Message(id string) (schema.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return schema.Message{}, false
}

// History returns a copy of the last max messages (all when max <= 0).
func (s *Session) History(max int) []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	out := make([]schema.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear drops all messages and the title.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.Title = ""
	s.UpdatedAt = time.Now()
}

func makeTitle(content string, lang schema.Language) string {
	t := strings.Join(strings.Fields(content), " ")
	if t == "" {
		if lang == schema.Hindi {
			return "नया चैट"
		}
		return "New Chat"
	}
	if utf8.RuneCountInString(t) > titleRunes {
		t = string([]rune(t)[:titleRunes])
	}
	return t
}
