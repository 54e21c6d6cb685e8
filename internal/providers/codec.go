package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/sjson"
)

// codec is the per-family half of the tagged union: how a request is
// addressed and encoded, and how a successful body is reduced to text.
type codec interface {
	endpoint(apiBase, apiKey, model string, stream bool) string
	authorize(h http.Header, apiKey string)
	encode(req CompletionRequest, stream bool) (map[string]any, error)
	extract(body []byte) (string, error)
	decodeEvent(data []byte) (string, error)
}

func codecFor(f Family) codec {
	if f == FamilyGemini {
		return geminiCodec{}
	}
	return openAICodec{}
}

// marshalBody encodes body and then applies sjson path overrides, first the
// spec's per-model overrides and then the caller's extra fields.
func marshalBody(body map[string]any, spec ProviderSpec, model string, extra map[string]any) ([]byte, error) {
	data, err := jsonMarshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	for _, o := range spec.overridesFor(model) {
		for path, v := range o.Set {
			if data, err = sjson.SetBytes(data, path, v); err != nil {
				return nil, fmt.Errorf("apply override %s: %w", path, err)
			}
		}
	}
	for path, v := range extra {
		if data, err = sjson.SetBytes(data, path, v); err != nil {
			return nil, fmt.Errorf("apply extra body %s: %w", path, err)
		}
	}
	return data, nil
}

// jsonMarshal encodes v without HTML escaping so prompts reach the provider
// byte-for-byte.
func jsonMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
