package dependency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaai/panda/internal/chat"
	"github.com/pandaai/panda/internal/config"
	"github.com/pandaai/panda/internal/providers"
)

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Mock.Enabled = true
	cfg.Mock.DelayMs = 1
	cfg.Sessions.Dir = t.TempDir()
	cfg.Channels.WebSocket.Enabled = false
	return &cfg
}

func TestNew_WiresServices(t *testing.T) {
	c, err := New(mockConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, c.Engine())
	assert.NotNil(t, c.Builder())
	assert.NotNil(t, c.Sessions())
	assert.NotNil(t, c.Docs())
	assert.NotNil(t, c.Retention())
	assert.NotNil(t, c.AgentLoop())
	assert.NotNil(t, c.ChannelManager())
	assert.True(t, c.Client().MockEnabled())
	assert.Equal(t, providers.FamilyOpenAI, c.Engine().Family())
}

func TestNew_MockTurnEndToEnd(t *testing.T) {
	c, err := New(mockConfig(t))
	require.NoError(t, err)

	res, err := c.Turns().Send(context.Background(), chat.TurnInput{SessionKey: "cli:test", Text: "Hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultMockResponse, res.Text)
	assert.Len(t, c.Sessions().List(), 1)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Provider.Name = "nope"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_GeminiDetectedFromKey(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Provider.APIKey = "AIzaSyTestKey"
	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, providers.FamilyGemini, c.Engine().Family())
	assert.Equal(t, "gemini", c.Engine().Spec().Name)
}
