// Package chat delivers completions to callers, either streamed or as a
// single chunk, and runs conversation turns on top of that.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/schema"
)

// Engine is the transport the client drives.
type Engine interface {
	Execute(ctx context.Context, req providers.CompletionRequest, stream bool) (*providers.RawResult, error)
}

// ChunkFunc receives completion fragments in arrival order.
type ChunkFunc func(fragment string)

// Options configures a Client.
type Options struct {
	DefaultModel string // fallback target after a model-related failure
	Stream       bool   // request incremental delivery when the provider supports it
	Mock         MockOptions
}

// Client is the caller-facing completion API. Every result is delivered
// through the chunk callback, whether or not the provider streamed it.
type Client struct {
	engine Engine
	opts   Options
}

// NewClient creates a Client. engine may be nil when mock mode is on.
func NewClient(engine Engine, opts Options) *Client {
	if opts.Mock.Delay <= 0 {
		opts.Mock.Delay = DefaultMockDelay
	}
	if opts.Mock.Response == "" {
		opts.Mock.Response = DefaultMockResponse
	}
	return &Client{engine: engine, opts: opts}
}

// MockEnabled reports whether the client answers with the canned response.
func (c *Client) MockEnabled() bool { return c.opts.Mock.Enabled }

// Run executes req and returns the full completion. The concatenation of
// all fragments passed to onChunk equals the returned text. On failure the
// typed error is returned and no further fragments are delivered.
//
// A model-related failure on a non-default model is retried once against
// the default model, provided nothing was delivered yet.
func (c *Client) Run(ctx context.Context, req providers.CompletionRequest, onChunk ChunkFunc) (string, error) {
	if onChunk == nil {
		onChunk = func(string) {}
	}
	if c.opts.Mock.Enabled {
		return c.runMock(ctx, onChunk)
	}
	if c.engine == nil {
		return "", schema.NewError(schema.ErrConfiguration, "no provider configured")
	}
	if req.Model == "" {
		req.Model = c.opts.DefaultModel
	}

	out := &emitter{deliver: onChunk}

	text, err := c.tryModel(ctx, req, out)
	if err == nil {
		return text, nil
	}
	if !c.shouldFallback(req.Model, err, out) {
		return "", err
	}

	slog.Warn("model rejected request, retrying with default model",
		"model", req.Model,
		"fallback", c.opts.DefaultModel,
		"kind", schema.KindOf(err))

	out.pending.Reset()
	return c.tryModel(ctx, req.WithModel(c.opts.DefaultModel), out)
}

func (c *Client) shouldFallback(model string, err error, out *emitter) bool {
	return schema.KindOf(err).ModelRelated() &&
		c.opts.DefaultModel != "" &&
		model != c.opts.DefaultModel &&
		!out.started
}

// tryModel runs one complete transport call (including its rate-limit
// retries) against req.Model.
func (c *Client) tryModel(ctx context.Context, req providers.CompletionRequest, out *emitter) (string, error) {
	res, err := c.engine.Execute(ctx, req, c.opts.Stream)
	if err != nil {
		return "", err
	}

	if res.Stream != nil {
		defer res.Stream.Close()
		return consumeStream(ctx, res, out)
	}

	text, err := providers.Extract(res.Family, res.Body)
	if err != nil {
		if se, ok := schema.AsError(err); ok && se.Model == "" {
			se.Model = res.Model
		}
		return "", err
	}
	out.push(text)
	return out.text(), nil
}

func consumeStream(ctx context.Context, res *providers.RawResult, out *emitter) (string, error) {
	err := providers.ReadEvents(res.Stream, func(data []byte) error {
		frag, err := providers.DecodeEvent(res.Family, data)
		if err != nil {
			return err
		}
		out.push(frag)
		return nil
	})

	if err != nil {
		if se, ok := schema.AsError(err); ok {
			se.Model = res.Model
			se.Partial = out.text()
			return "", se
		}
		kind := schema.ErrNetwork
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			kind = schema.ErrCanceled
		}
		return "", &schema.Error{Kind: kind, Model: res.Model, Partial: out.text(), Err: err}
	}

	if !out.started {
		return "", &schema.Error{Kind: schema.ErrEmptyResponse, Model: res.Model, Message: "stream carried no text"}
	}
	return out.text(), nil
}

// emitter forwards fragments to the caller. Leading whitespace-only
// fragments are held back until real text arrives, so a blank completion
// delivers nothing.
type emitter struct {
	deliver ChunkFunc
	pending strings.Builder
	sent    strings.Builder
	started bool
}

func (e *emitter) push(frag string) {
	if frag == "" {
		return
	}
	if !e.started {
		e.pending.WriteString(frag)
		if strings.TrimSpace(e.pending.String()) == "" {
			return
		}
		frag = e.pending.String()
		e.pending.Reset()
		e.started = true
	}
	e.sent.WriteString(frag)
	e.deliver(frag)
}

func (e *emitter) text() string { return e.sent.String() }
