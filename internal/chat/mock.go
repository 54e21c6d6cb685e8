package chat

import (
	"context"
	"time"

	"github.com/pandaai/panda/internal/schema"
)

const (
	DefaultMockDelay    = 600 * time.Millisecond
	DefaultMockResponse = "🐼 Mock mode is on, so this is a canned reply from Panda AI. " +
		"Set MOCK_MODE=false and provide an API_KEY to talk to a live model."
)

// runMock waits the configured delay and delivers the canned response as a
// single chunk. It never touches the network.
func (c *Client) runMock(ctx context.Context, onChunk ChunkFunc) (string, error) {
	t := time.NewTimer(c.opts.Mock.Delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return "", &schema.Error{Kind: schema.ErrCanceled, Err: ctx.Err()}
	case <-t.C:
	}

	onChunk(c.opts.Mock.Response)
	return c.opts.Mock.Response, nil
}

// MockOptions configures the canned-response mode.
type MockOptions struct {
	Enabled  bool
	Delay    time.Duration
	Response string
}
