package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/pandaai/panda/internal/schema"
)

const (
	// DefaultMaxRetries is the retry budget after the initial attempt.
	DefaultMaxRetries = 3

	maxResponseBytes = 8 << 20
	maxErrorBytes    = 64 << 10
)

// Doer is the subset of *http.Client the engine needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryState tracks one logical call through the retry state machine.
// It is created per call and discarded when the call ends.
type RetryState struct {
	Attempt     int // 0-based index of the attempt in flight
	MaxAttempts int // retries allowed after the initial attempt
	LastStatus  int // HTTP status of the last failed attempt, 0 if none
}

// CanRetry reports whether another attempt is allowed after err.
func (s RetryState) CanRetry(err error) bool {
	return schema.KindOf(err).Retryable() && s.Attempt < s.MaxAttempts
}

// Backoff returns the wait before retry attempt n+1: the server's
// Retry-After when given, else 2^(n+1) seconds.
func Backoff(n int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	return time.Duration(1<<uint(n+1)) * time.Second
}

// RawResult is the undecoded outcome of a successful Execute. Exactly one of
// Body and Stream is set.
type RawResult struct {
	Family   Family
	Model    string
	Attempts int
	Body     []byte
	Stream   io.ReadCloser
}

// Params configures an Engine.
type Params struct {
	Spec              ProviderSpec
	APIKey            string
	APIBase           string
	ExtraHeaders      map[string]string
	ExtraBody         map[string]any // sjson path -> value, merged into every body
	MaxRetries        int
	RequestsPerMinute int
	Timeout           time.Duration
	HTTPClient        Doer
	Sleep             Sleeper
}

// Engine executes completion requests with rate-limit retries.
type Engine struct {
	spec         ProviderSpec
	codec        codec
	apiKey       string
	apiBase      string
	extraHeaders map[string]string
	extraBody    map[string]any
	maxRetries   int
	client       Doer
	sleep        Sleeper
	limiter      *rate.Limiter
}

// NewEngine builds an Engine. Zero values in p fall back to defaults.
func NewEngine(p Params) *Engine {
	base := p.APIBase
	if base == "" {
		base = p.Spec.DefaultAPIBase
	}
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	client := p.HTTPClient
	if client == nil {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var limiter *rate.Limiter
	if p.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.RequestsPerMinute)), 1)
	}

	return &Engine{
		spec:         p.Spec,
		codec:        codecFor(p.Spec.Family),
		apiKey:       p.APIKey,
		apiBase:      strings.TrimRight(base, "/"),
		extraHeaders: p.ExtraHeaders,
		extraBody:    p.ExtraBody,
		maxRetries:   maxRetries,
		client:       client,
		sleep:        sleep,
		limiter:      limiter,
	}
}

// Family returns the wire family the engine speaks.
func (e *Engine) Family() Family { return e.spec.Family }

// Spec returns the provider the engine targets.
func (e *Engine) Spec() ProviderSpec { return e.spec }

// Execute sends req, retrying on 429 up to the retry budget. With stream
// set, a successful result carries the open event stream; the caller must
// close it.
func (e *Engine) Execute(ctx context.Context, req CompletionRequest, stream bool) (*RawResult, error) {
	wire, err := e.codec.encode(req, stream)
	if err != nil {
		return nil, err
	}
	body, err := marshalBody(wire, e.spec, req.Model, e.extraBody)
	if err != nil {
		return nil, err
	}

	state := RetryState{MaxAttempts: e.maxRetries}
	for {
		res, err := e.attempt(ctx, req.Model, body, stream)
		if err == nil {
			res.Attempts = state.Attempt + 1
			return res, nil
		}
		if se, ok := schema.AsError(err); ok {
			state.LastStatus = se.Status
		}
		if !state.CanRetry(err) {
			return nil, err
		}

		var retryAfter time.Duration
		if se, ok := schema.AsError(err); ok {
			retryAfter = se.RetryAfter
		}
		wait := Backoff(state.Attempt, retryAfter)
		slog.Warn("rate limited, backing off",
			"provider", e.spec.Name,
			"model", req.Model,
			"attempt", state.Attempt+1,
			"wait", wait)

		if err := e.sleep(ctx, wait); err != nil {
			return nil, &schema.Error{Kind: schema.ErrCanceled, Model: req.Model, Err: err}
		}
		state.Attempt++
	}
}

func (e *Engine) attempt(ctx context.Context, model string, body []byte, stream bool) (*RawResult, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &schema.Error{Kind: schema.ErrCanceled, Model: model, Err: err}
		}
	}

	url := e.codec.endpoint(e.apiBase, e.apiKey, model, stream)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	e.codec.authorize(req.Header, e.apiKey)
	for k, v := range e.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &schema.Error{Kind: schema.ErrCanceled, Model: model, Err: ctx.Err()}
		}
		return nil, &schema.Error{Kind: schema.ErrNetwork, Model: model, Err: redactKey(err, e.apiKey)}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, statusError(resp, raw, model)
	}

	res := &RawResult{Family: e.spec.Family, Model: model}
	if stream && isEventStream(resp.Header.Get("Content-Type")) {
		res.Stream = resp.Body
		return res, nil
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &schema.Error{Kind: schema.ErrNetwork, Model: model, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(raw) > maxResponseBytes {
		return nil, &schema.Error{Kind: schema.ErrPayloadTooLarge, Model: model, Message: "response exceeds size limit"}
	}
	res.Body = raw
	return res, nil
}

// statusError converts a non-200 response into a typed error.
func statusError(resp *http.Response, raw []byte, model string) *schema.Error {
	return &schema.Error{
		Kind:       schema.KindForStatus(resp.StatusCode),
		Status:     resp.StatusCode,
		Model:      model,
		Message:    errorDetail(raw),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// errorDetail pulls a human-readable message out of a provider error body.
func errorDetail(raw []byte) string {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"error.message", "error", "message"} {
			if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}

// parseRetryAfter reads a Retry-After value given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
