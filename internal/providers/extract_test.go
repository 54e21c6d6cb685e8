package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandaai/panda/internal/schema"
)

func TestExtract_OpenAI(t *testing.T) {
	text, err := Extract(FamilyOpenAI, []byte(`{"choices":[{"message":{"content":"Hello!"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)

	text, err = Extract(FamilyOpenAI, []byte(`{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestExtract_Gemini(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"one "},{"text":"two"}]}},{"content":{"parts":[{"text":"ignored"}]}}]}`
	text, err := Extract(FamilyGemini, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "one two", text)
}

func TestExtract_DispatchesOnFamily(t *testing.T) {
	// A body that satisfies both shapes is read according to the tag only.
	body := []byte(`{"choices":[{"message":{"content":"openai"}}],"candidates":[{"content":{"parts":[{"text":"gemini"}]}}]}`)

	a, err := Extract(FamilyOpenAI, body)
	require.NoError(t, err)
	b, err := Extract(FamilyGemini, body)
	require.NoError(t, err)
	assert.Equal(t, "openai", a)
	assert.Equal(t, "gemini", b)
}

func TestExtract_EmptyResponse(t *testing.T) {
	cases := []struct {
		family Family
		body   string
	}{
		{FamilyOpenAI, `{"choices":[{"message":{"content":""}}]}`},
		{FamilyOpenAI, `{"choices":[{"message":{"content":"  \n\t"}}]}`},
		{FamilyOpenAI, `{"choices":[]}`},
		{FamilyOpenAI, `not json`},
		{FamilyGemini, `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`},
		{FamilyGemini, `{"candidates":[]}`},
	}
	for _, tc := range cases {
		_, err := Extract(tc.family, []byte(tc.body))
		assert.Equal(t, schema.ErrEmptyResponse, schema.KindOf(err), "body %s", tc.body)
	}
}

func TestExtract_SafetyBlocked(t *testing.T) {
	_, err := Extract(FamilyGemini, []byte(`{"promptFeedback":{"blockReason":"SAFETY"},"candidates":[{"content":{"parts":[{"text":"leak"}]}}]}`))
	se, ok := schema.AsError(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrSafetyBlocked, se.Kind)
	assert.Equal(t, "SAFETY", se.Message)

	_, err = Extract(FamilyGemini, []byte(`{"candidates":[{"finishReason":"PROHIBITED_CONTENT","content":{"parts":[]}}]}`))
	assert.Equal(t, schema.ErrSafetyBlocked, schema.KindOf(err))

	_, err = Extract(FamilyOpenAI, []byte(`{"choices":[{"finish_reason":"content_filter","message":{"content":""}}]}`))
	assert.Equal(t, schema.ErrSafetyBlocked, schema.KindOf(err))
}

func TestExtract_EmbeddedError(t *testing.T) {
	_, err := Extract(FamilyOpenAI, []byte(`{"error":{"code":404,"message":"No endpoints found"}}`))
	se, ok := schema.AsError(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrNotFound, se.Kind)
	assert.Equal(t, "No endpoints found", se.Message)
}

func TestDecodeEvent(t *testing.T) {
	frag, err := DecodeEvent(FamilyOpenAI, []byte(`{"choices":[{"delta":{"content":"Hel"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Hel", frag)

	frag, err = DecodeEvent(FamilyOpenAI, []byte(`{"choices":[{"delta":{},"finish_reason":"stop"}]}`))
	require.NoError(t, err)
	assert.Empty(t, frag)

	frag, err = DecodeEvent(FamilyGemini, []byte(`{"candidates":[{"content":{"parts":[{"text":"lo"}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "lo", frag)

	_, err = DecodeEvent(FamilyGemini, []byte(`{"promptFeedback":{"blockReason":"OTHER"}}`))
	assert.Equal(t, schema.ErrSafetyBlocked, schema.KindOf(err))
}
