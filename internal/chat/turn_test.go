package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaai/panda/internal/prompt"
	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/schema"
	"github.com/pandaai/panda/internal/session"
)

type fakeCompleter struct {
	frags   []string
	err     error
	block   chan struct{}
	started chan struct{}
	lastReq providers.CompletionRequest
}

func (f *fakeCompleter) Run(_ context.Context, req providers.CompletionRequest, onChunk ChunkFunc) (string, error) {
	f.lastReq = req
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	var text string
	for _, s := range f.frags {
		onChunk(s)
		text += s
	}
	if f.err != nil {
		return "", f.err
	}
	return text, nil
}

func newTurnService(t *testing.T, c Completer) *TurnService {
	t.Helper()
	mgr, err := session.NewManager(t.TempDir())
	require.NoError(t, err)
	b := prompt.NewBuilder(prompt.Options{}, nil)
	return NewTurnService(mgr, b, c, "default/m", schema.English)
}

func TestSend_StreamsIntoAssistantMessage(t *testing.T) {
	c := &fakeCompleter{frags: []string{"Hel", "lo!"}}
	svc := newTurnService(t, c)

	var seen []string
	res, err := svc.Send(context.Background(), TurnInput{SessionKey: "cli:1", Text: "Hi"}, func(s string) {
		seen = append(seen, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Text)
	assert.Equal(t, []string{"Hel", "lo!"}, seen)
	assert.Equal(t, "default/m", c.lastReq.Model)

	sess := svc.Sessions().GetOrCreate("cli:1")
	msg, ok := sess.Message(res.AssistantMessageID)
	require.True(t, ok)
	assert.Equal(t, "Hello!", msg.Content)
	assert.Equal(t, schema.RoleAssistant, msg.Role)
	assert.Equal(t, 2, sess.Len())
	assert.Equal(t, "Hi", sess.Title)
}

func TestSend_RequestCarriesPersonaAndUserText(t *testing.T) {
	c := &fakeCompleter{frags: []string{"ok"}}
	svc := newTurnService(t, c)

	_, err := svc.Send(context.Background(), TurnInput{SessionKey: "k", Text: "What is 2+2?", Model: "custom/m"}, nil)
	require.NoError(t, err)

	req := c.lastReq
	assert.Equal(t, "custom/m", req.Model)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, schema.RoleSystem, req.Messages[0].Role)
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, schema.RoleUser, last.Role)
	assert.Contains(t, last.Text(), "What is 2+2?")
}

func TestSend_FailureWritesLocalizedError(t *testing.T) {
	c := &fakeCompleter{err: &schema.Error{Kind: schema.ErrRateLimited, Status: 429}}
	svc := newTurnService(t, c)

	res, err := svc.Send(context.Background(), TurnInput{SessionKey: "k", Text: "Hi", Language: schema.Hindi}, nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrRateLimited, schema.KindOf(err))
	assert.Equal(t, Localize(err, schema.Hindi), res.Text)

	msg, ok := svc.Sessions().GetOrCreate("k").Message(res.AssistantMessageID)
	require.True(t, ok)
	assert.Equal(t, res.Text, msg.Content)
}

func TestSend_PartialStreamReplacedByError(t *testing.T) {
	c := &fakeCompleter{
		frags: []string{"Once upon"},
		err:   &schema.Error{Kind: schema.ErrNetwork, Partial: "Once upon"},
	}
	svc := newTurnService(t, c)

	res, err := svc.Send(context.Background(), TurnInput{SessionKey: "k", Text: "story"}, nil)
	require.Error(t, err)

	msg, _ := svc.Sessions().GetOrCreate("k").Message(res.AssistantMessageID)
	assert.Equal(t, Localize(err, schema.English), msg.Content)
}

func TestSend_OneTurnAtATime(t *testing.T) {
	c := &fakeCompleter{frags: []string{"done"}, block: make(chan struct{}), started: make(chan struct{})}
	svc := newTurnService(t, c)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), TurnInput{SessionKey: "k", Text: "first"}, nil)
		errCh <- err
	}()
	<-c.started
	assert.True(t, svc.Busy("k"))

	res, err := svc.Send(context.Background(), TurnInput{SessionKey: "k", Text: "second"}, nil)
	assert.ErrorIs(t, err, ErrTurnActive)
	assert.Equal(t, Localize(ErrTurnActive, schema.English), res.Text)
	assert.ErrorIs(t, svc.Reset("k"), ErrTurnActive)

	close(c.block)
	require.NoError(t, <-errCh)
	assert.False(t, svc.Busy("k"))

	require.NoError(t, svc.Reset("k"))
	assert.Equal(t, 0, svc.Sessions().GetOrCreate("k").Len())
}

func TestSend_PersistsSession(t *testing.T) {
	c := &fakeCompleter{frags: []string{"saved"}}
	svc := newTurnService(t, c)

	_, err := svc.Send(context.Background(), TurnInput{SessionKey: "telegram:42", Text: "remember me"}, nil)
	require.NoError(t, err)

	reloaded, err := session.NewManager(svc.Sessions().Dir())
	require.NoError(t, err)
	sess := reloaded.GetOrCreate("telegram:42")
	require.Equal(t, 2, sess.Len())
	assert.Equal(t, "saved", sess.History(0)[1].Content)
}
