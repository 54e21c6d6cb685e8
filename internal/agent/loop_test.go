package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/chat"
	"github.com/pandaai/panda/internal/schema"
)

type fakeTurner struct {
	mu      sync.Mutex
	inputs  []chat.TurnInput
	resets  []string
	frags   []string
	result  chat.TurnResult
	err     error
	resetFn func(string) error
}

func (f *fakeTurner) Send(_ context.Context, in chat.TurnInput, onChunk chat.ChunkFunc) (chat.TurnResult, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if onChunk != nil {
		for _, s := range f.frags {
			onChunk(s)
		}
	}
	return f.result, f.err
}

func (f *fakeTurner) Reset(key string) error {
	f.mu.Lock()
	f.resets = append(f.resets, key)
	f.mu.Unlock()
	if f.resetFn != nil {
		return f.resetFn(key)
	}
	return nil
}

func runLoop(t *testing.T, turner Turner) (*bus.AgentBus, *bus.ChannelBus) {
	t.Helper()
	inbound := bus.NewAgentBus(8)
	outbound := bus.NewChannelBus(8)
	loop := NewAgentLoop(inbound, outbound, turner, schema.English)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()
	return inbound, outbound
}

func next(t *testing.T, outbound *bus.ChannelBus) bus.ChannelMessage {
	t.Helper()
	select {
	case msg := <-outbound.Subscribe():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no outbound message")
		return bus.ChannelMessage{}
	}
}

func TestLoop_TurnReply(t *testing.T) {
	turner := &fakeTurner{result: chat.TurnResult{AssistantMessageID: "a1", Text: "Hello!"}}
	inbound, outbound := runLoop(t, turner)

	msg := bus.NewAgentBusMessage(bus.ChannelTelegram, "7|bob", "42", "Hi", "")
	msg.SetMetadata(map[string]any{"message_id": 5})
	require.NoError(t, inbound.Publish(context.Background(), msg))

	out := next(t, outbound)
	assert.Equal(t, bus.KindDone, out.Kind())
	assert.Equal(t, "Hello!", out.Content())
	assert.Equal(t, "42", out.ChatId())
	assert.Equal(t, "a1", out.MessageId())
	assert.Equal(t, 5, out.Metadata()["message_id"])

	turner.mu.Lock()
	defer turner.mu.Unlock()
	require.Len(t, turner.inputs, 1)
	assert.Equal(t, "telegram:42", turner.inputs[0].SessionKey)
}

func TestLoop_StreamsChunksBeforeFinal(t *testing.T) {
	turner := &fakeTurner{frags: []string{"Hel", "lo"}, result: chat.TurnResult{Text: "Hello"}}
	inbound, outbound := runLoop(t, turner)

	msg := bus.NewAgentBusMessage(bus.ChannelWebSocket, "c", "c", "Hi", "")
	msg.SetStream(true)
	require.NoError(t, inbound.Publish(context.Background(), msg))

	assert.Equal(t, "Hel", next(t, outbound).Content())
	second := next(t, outbound)
	assert.Equal(t, bus.KindChunk, second.Kind())
	assert.Equal(t, "lo", second.Content())
	assert.Equal(t, bus.KindDone, next(t, outbound).Kind())
}

func TestLoop_NoChunksWithoutStreaming(t *testing.T) {
	turner := &fakeTurner{frags: []string{"Hel", "lo"}, result: chat.TurnResult{Text: "Hello"}}
	inbound, outbound := runLoop(t, turner)

	require.NoError(t, inbound.Publish(context.Background(), bus.NewAgentBusMessage(bus.ChannelSlack, "U", "C", "Hi", "")))
	out := next(t, outbound)
	assert.Equal(t, bus.KindDone, out.Kind())
	assert.Equal(t, "Hello", out.Content())
}

func TestLoop_ErrorReply(t *testing.T) {
	err := &schema.Error{Kind: schema.ErrSafetyBlocked}
	turner := &fakeTurner{result: chat.TurnResult{Text: chat.Localize(err, schema.English)}, err: err}
	inbound, outbound := runLoop(t, turner)

	require.NoError(t, inbound.Publish(context.Background(), bus.NewAgentBusMessage(bus.ChannelSlack, "U", "C", "Hi", "")))
	out := next(t, outbound)
	assert.Equal(t, bus.KindError, out.Kind())
	assert.Contains(t, out.Content(), "safety filter")
}

func TestLoop_Commands(t *testing.T) {
	turner := &fakeTurner{}
	inbound, outbound := runLoop(t, turner)

	help := bus.NewAgentBusMessage(bus.ChannelTelegram, "u", "1", "/help", "")
	help.SetLanguage(schema.Hindi)
	require.NoError(t, inbound.Publish(context.Background(), help))
	assert.Equal(t, helpText(schema.Hindi), next(t, outbound).Content())

	require.NoError(t, inbound.Publish(context.Background(), bus.NewAgentBusMessage(bus.ChannelTelegram, "u", "1", " /NEW ", "")))
	assert.Equal(t, newChatText(schema.English), next(t, outbound).Content())

	turner.mu.Lock()
	defer turner.mu.Unlock()
	assert.Equal(t, []string{"telegram:1"}, turner.resets)
	assert.Empty(t, turner.inputs)
}

func TestLoop_ResetWhileBusy(t *testing.T) {
	turner := &fakeTurner{resetFn: func(string) error { return chat.ErrTurnActive }}
	inbound, outbound := runLoop(t, turner)

	require.NoError(t, inbound.Publish(context.Background(), bus.NewAgentBusMessage(bus.ChannelTelegram, "u", "1", "/new", "")))
	out := next(t, outbound)
	assert.Equal(t, bus.KindError, out.Kind())
	assert.Equal(t, chat.Localize(chat.ErrTurnActive, schema.English), out.Content())
}
