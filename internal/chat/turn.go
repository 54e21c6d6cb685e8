package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/schema"
	"github.com/pandaai/panda/internal/session"
)

// Completer runs one completion request.
type Completer interface {
	Run(ctx context.Context, req providers.CompletionRequest, onChunk ChunkFunc) (string, error)
}

// RequestBuilder turns a conversation into a completion request.
type RequestBuilder interface {
	Build(history []schema.Message, lang schema.Language, attachments []schema.Attachment, model string) (providers.CompletionRequest, error)
}

// TurnInput is one user submission.
type TurnInput struct {
	SessionKey  string
	Text        string
	Attachments []schema.Attachment
	Language    schema.Language // empty = session or service default
	Model       string          // empty = service default
}

// TurnResult describes the outcome of a turn. On failure Text holds the
// localized error message that was written into the conversation.
type TurnResult struct {
	UserMessageID      string
	AssistantMessageID string
	Text               string
	Err                error
}

// TurnService runs conversation turns: it records the user message, streams
// the reply into an assistant message addressed by ID and persists the
// session. At most one turn per conversation is in flight.
type TurnService struct {
	sessions *session.Manager
	builder  RequestBuilder
	client   Completer
	model    string
	lang     schema.Language

	mu     sync.Mutex
	active map[string]bool
}

// NewTurnService creates a TurnService.
func NewTurnService(sessions *session.Manager, builder RequestBuilder, client Completer, model string, lang schema.Language) *TurnService {
	if lang == "" {
		lang = schema.English
	}
	return &TurnService{
		sessions: sessions,
		builder:  builder,
		client:   client,
		model:    model,
		lang:     lang,
		active:   make(map[string]bool),
	}
}

// Sessions exposes the underlying session store.
func (s *TurnService) Sessions() *session.Manager { return s.sessions }

// Busy reports whether key has a turn in flight.
func (s *TurnService) Busy(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[key]
}

func (s *TurnService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[key] {
		return false
	}
	s.active[key] = true
	return true
}

func (s *TurnService) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, key)
}

// Send runs one turn. onChunk, if non-nil, sees every fragment of the reply.
// A failed turn still returns a result whose Text is the localized error
// message; the error is returned as well.
func (s *TurnService) Send(ctx context.Context, in TurnInput, onChunk ChunkFunc) (TurnResult, error) {
	lang := in.Language
	if !s.acquire(in.SessionKey) {
		if lang == "" {
			lang = s.lang
		}
		return TurnResult{Text: Localize(ErrTurnActive, lang), Err: ErrTurnActive}, ErrTurnActive
	}
	defer s.release(in.SessionKey)

	sess := s.sessions.GetOrCreate(in.SessionKey)
	if lang == "" {
		lang = sess.Language
	}
	if lang == "" {
		lang = s.lang
	}
	sess.Language = lang

	model := in.Model
	if model == "" {
		model = s.model
	}

	user := sess.AppendUser(strings.TrimSpace(in.Text), in.Attachments)
	history := sess.History(0)
	assistant := sess.AppendAssistant("")

	res := TurnResult{UserMessageID: user.ID, AssistantMessageID: assistant.ID}

	text, err := s.complete(ctx, sess, assistant.ID, history, lang, in.Attachments, model, onChunk)
	if err != nil {
		slog.Warn("turn failed", "session", in.SessionKey, "model", model, "kind", schema.KindOf(err), "err", err)
		text = Localize(err, lang)
		res.Err = err
	}
	res.Text = text

	if !sess.SetContent(assistant.ID, text) {
		slog.Debug("assistant message gone, dropping stale reply", "session", in.SessionKey, "id", assistant.ID)
	}
	if saveErr := s.sessions.Save(sess); saveErr != nil {
		slog.Warn("failed to save session", "session", in.SessionKey, "err", saveErr)
	}
	return res, res.Err
}

func (s *TurnService) complete(
	ctx context.Context,
	sess *session.Session,
	assistantID string,
	history []schema.Message,
	lang schema.Language,
	attachments []schema.Attachment,
	model string,
	onChunk ChunkFunc,
) (string, error) {
	req, err := s.builder.Build(history, lang, attachments, model)
	if err != nil {
		return "", err
	}

	return s.client.Run(ctx, req, func(frag string) {
		if !sess.AppendContent(assistantID, frag) {
			return
		}
		if onChunk != nil {
			onChunk(frag)
		}
	})
}

// Reset clears a conversation. It refuses while a turn is in flight.
func (s *TurnService) Reset(key string) error {
	if !s.acquire(key) {
		return ErrTurnActive
	}
	defer s.release(key)

	sess := s.sessions.GetOrCreate(key)
	sess.Clear()
	return s.sessions.Save(sess)
}
