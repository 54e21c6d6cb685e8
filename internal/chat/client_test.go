package chat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/schema"
)

// scriptedEngine replays one outcome per Execute call.
type scriptedEngine struct {
	steps  []func() (*providers.RawResult, error)
	models []string
}

func (e *scriptedEngine) Execute(_ context.Context, req providers.CompletionRequest, _ bool) (*providers.RawResult, error) {
	e.models = append(e.models, req.Model)
	i := len(e.models) - 1
	if i >= len(e.steps) {
		return nil, &schema.Error{Kind: schema.ErrServer, Message: "unexpected call"}
	}
	return e.steps[i]()
}

func body(family providers.Family, s string) func() (*providers.RawResult, error) {
	return func() (*providers.RawResult, error) {
		return &providers.RawResult{Family: family, Body: []byte(s)}, nil
	}
}

func stream(family providers.Family, s string) func() (*providers.RawResult, error) {
	return func() (*providers.RawResult, error) {
		return &providers.RawResult{Family: family, Stream: io.NopCloser(strings.NewReader(s))}, nil
	}
}

func fail(kind schema.ErrorKind, status int) func() (*providers.RawResult, error) {
	return func() (*providers.RawResult, error) {
		return nil, &schema.Error{Kind: kind, Status: status}
	}
}

func request(model string) providers.CompletionRequest {
	return providers.CompletionRequest{
		Model:    model,
		Messages: []providers.Message{{Role: schema.RoleUser, Parts: []providers.Part{providers.TextPart("Hi")}}},
	}
}

type chunks struct{ got []string }

func (c *chunks) add(s string) { c.got = append(c.got, s) }

func TestRun_SingleShot(t *testing.T) {
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){
		body(providers.FamilyOpenAI, `{"choices":[{"message":{"content":"Hello!"}}]}`),
	}}
	c := NewClient(eng, Options{DefaultModel: "default/m"})

	var ch chunks
	text, err := c.Run(context.Background(), request("default/m"), ch.add)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, []string{"Hello!"}, ch.got)
}

func TestRun_Streaming(t *testing.T) {
	sse := "data: {\"choices\":[{\"delta\":{\"content\":\" \"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){stream(providers.FamilyOpenAI, sse)}}
	c := NewClient(eng, Options{DefaultModel: "d", Stream: true})

	var ch chunks
	text, err := c.Run(context.Background(), request("d"), ch.add)
	require.NoError(t, err)
	assert.Equal(t, " Hello", text)
	assert.Equal(t, []string{" Hel", "lo"}, ch.got)
	assert.Equal(t, text, strings.Join(ch.got, ""))
}

func TestRun_StreamingBlankIsEmptyResponse(t *testing.T) {
	sse := "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"  \"}]}}]}\n\n" +
		"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"\\n\"}]}}]}\n\n"
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){stream(providers.FamilyGemini, sse)}}
	c := NewClient(eng, Options{DefaultModel: "d", Stream: true})

	var ch chunks
	_, err := c.Run(context.Background(), request("d"), ch.add)
	assert.Equal(t, schema.ErrEmptyResponse, schema.KindOf(err))
	assert.Empty(t, ch.got)
}

func TestRun_StreamingSafetyBlockKeepsPartial(t *testing.T) {
	sse := "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Once\"}]}}]}\n\n" +
		"data: {\"promptFeedback\":{\"blockReason\":\"SAFETY\"}}\n\n"
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){stream(providers.FamilyGemini, sse)}}
	c := NewClient(eng, Options{DefaultModel: "d", Stream: true})

	_, err := c.Run(context.Background(), request("d"), nil)
	se, ok := schema.AsError(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrSafetyBlocked, se.Kind)
	assert.Equal(t, "Once", se.Partial)
}

func TestRun_EmptyResponseIsError(t *testing.T) {
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){
		body(providers.FamilyOpenAI, `{"choices":[{"message":{"content":"   "}}]}`),
	}}
	c := NewClient(eng, Options{DefaultModel: "d"})

	var ch chunks
	_, err := c.Run(context.Background(), request("d"), ch.add)
	assert.Equal(t, schema.ErrEmptyResponse, schema.KindOf(err))
	assert.Empty(t, ch.got)
}

func TestRun_FallbackOnModelError(t *testing.T) {
	for _, kind := range []schema.ErrorKind{schema.ErrNotFound, schema.ErrBadRequest, schema.ErrUnprocessable} {
		eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){
			fail(kind, 404),
			body(providers.FamilyOpenAI, `{"choices":[{"message":{"content":"from default"}}]}`),
		}}
		c := NewClient(eng, Options{DefaultModel: "default/m"})

		text, err := c.Run(context.Background(), request("fancy/m"), nil)
		require.NoError(t, err, kind.String())
		assert.Equal(t, "from default", text)
		assert.Equal(t, []string{"fancy/m", "default/m"}, eng.models)
	}
}

func TestRun_FallbackDropsHeldWhitespace(t *testing.T) {
	sse := "data: {\"choices\":[{\"delta\":{\"content\":\"\\n\\n\"}}]}\n\n" +
		"data: {\"error\":{\"code\":404,\"message\":\"no such model\"}}\n\n"
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){
		stream(providers.FamilyOpenAI, sse),
		body(providers.FamilyOpenAI, `{"choices":[{"message":{"content":"Hello"}}]}`),
	}}
	c := NewClient(eng, Options{DefaultModel: "default/m", Stream: true})

	var ch chunks
	text, err := c.Run(context.Background(), request("fancy/m"), ch.add)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, []string{"Hello"}, ch.got)
	assert.Equal(t, []string{"fancy/m", "default/m"}, eng.models)
}

func TestRun_FallbackAtMostOnce(t *testing.T) {
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){
		fail(schema.ErrNotFound, 404),
		fail(schema.ErrNotFound, 404),
	}}
	c := NewClient(eng, Options{DefaultModel: "default/m"})

	_, err := c.Run(context.Background(), request("fancy/m"), nil)
	assert.Equal(t, schema.ErrNotFound, schema.KindOf(err))
	assert.Equal(t, []string{"fancy/m", "default/m"}, eng.models)
}

func TestRun_NoFallbackForDefaultModel(t *testing.T) {
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){fail(schema.ErrBadRequest, 400)}}
	c := NewClient(eng, Options{DefaultModel: "default/m"})

	_, err := c.Run(context.Background(), request("default/m"), nil)
	assert.Equal(t, schema.ErrBadRequest, schema.KindOf(err))
	assert.Len(t, eng.models, 1)
}

func TestRun_NoFallbackForOtherErrors(t *testing.T) {
	for _, kind := range []schema.ErrorKind{schema.ErrUnauthorized, schema.ErrRateLimited, schema.ErrServer, schema.ErrNetwork} {
		eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){fail(kind, 0)}}
		c := NewClient(eng, Options{DefaultModel: "default/m"})

		_, err := c.Run(context.Background(), request("fancy/m"), nil)
		assert.Equal(t, kind, schema.KindOf(err))
		assert.Len(t, eng.models, 1, kind.String())
	}
}

func TestRun_EmptyModelUsesDefault(t *testing.T) {
	eng := &scriptedEngine{steps: []func() (*providers.RawResult, error){
		body(providers.FamilyOpenAI, `{"choices":[{"message":{"content":"ok"}}]}`),
	}}
	c := NewClient(eng, Options{DefaultModel: "default/m"})
	_, err := c.Run(context.Background(), request(""), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"default/m"}, eng.models)
}

func TestRun_MockMode(t *testing.T) {
	eng := &scriptedEngine{}
	c := NewClient(eng, Options{Mock: MockOptions{Enabled: true, Delay: 10 * time.Millisecond}})

	var ch chunks
	start := time.Now()
	text, err := c.Run(context.Background(), request("any"), ch.add)
	require.NoError(t, err)

	assert.Equal(t, DefaultMockResponse, text)
	assert.Equal(t, []string{DefaultMockResponse}, ch.got)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, eng.models, "mock mode must not touch the transport")
}

func TestRun_MockModeCanceled(t *testing.T) {
	c := NewClient(nil, Options{Mock: MockOptions{Enabled: true, Delay: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, request("any"), nil)
	assert.Equal(t, schema.ErrCanceled, schema.KindOf(err))
}

// Scenario: three 429s then a valid body, through the real engine.
func TestRun_RateLimitScenario(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello!"}}]}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	eng := providers.NewEngine(providers.Params{
		Spec:       *providers.FindByName("openrouter"),
		APIKey:     "sk-or-test",
		APIBase:    srv.URL,
		HTTPClient: srv.Client(),
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	})
	c := NewClient(eng, Options{DefaultModel: "d"})

	var ch chunks
	text, err := c.Run(context.Background(), request("d"), ch.add)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, []string{"Hello!"}, ch.got)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Len(t, waits, 3)
}

func TestLocalize(t *testing.T) {
	err := &schema.Error{Kind: schema.ErrRateLimited}
	assert.Contains(t, Localize(err, schema.English), "Too many requests")
	assert.NotEqual(t, Localize(err, schema.English), Localize(err, schema.Hindi))
	assert.Contains(t, Localize(ErrTurnActive, schema.English), "still answering")
	assert.Contains(t, Localize(io.EOF, schema.English), "Something went wrong")
}
