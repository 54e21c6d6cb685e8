package providers

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pandaai/panda/internal/schema"
)

// blockFinishReasons are candidate finish reasons that mean the output was
// withheld by a safety filter.
var blockFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

// geminiCodec speaks the generateContent REST surface.
type geminiCodec struct{}

func (geminiCodec) endpoint(apiBase, apiKey, model string, stream bool) string {
	base := strings.TrimRight(apiBase, "/")
	q := url.Values{}
	q.Set("key", apiKey)
	method := ":generateContent"
	if stream {
		method = ":streamGenerateContent"
		q.Set("alt", "sse")
	}
	return base + "/models/" + url.PathEscape(model) + method + "?" + q.Encode()
}

// authorize is a no-op: the key travels in the query string.
func (geminiCodec) authorize(http.Header, string) {}

// encode folds the system prompt into the last user message's text because
// the v1beta surface used here does not take a separate system field.
func (geminiCodec) encode(req CompletionRequest, _ bool) (map[string]any, error) {
	conv := req.conversation()
	system := req.System()

	lastUser := -1
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == schema.RoleUser {
			lastUser = i
			break
		}
	}

	contents := make([]map[string]any, 0, len(conv))
	for i, m := range conv {
		role := "user"
		if m.Role == schema.RoleAssistant {
			role = "model"
		}
		parts := geminiParts(m)
		if i == lastUser && system != "" {
			parts = prependSystem(parts, system)
		}
		contents = append(contents, map[string]any{"role": role, "parts": parts})
	}
	if lastUser < 0 && system != "" {
		contents = append(contents, map[string]any{
			"role":  "user",
			"parts": []map[string]any{{"text": system}},
		})
	}

	gen := map[string]any{
		"temperature": req.Temperature,
		"topP":        req.TopP,
	}
	if req.MaxTokens > 0 {
		gen["maxOutputTokens"] = req.MaxTokens
	}
	return map[string]any{
		"contents":         contents,
		"generationConfig": gen,
	}, nil
}

func geminiParts(m Message) []map[string]any {
	parts := make([]map[string]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.IsInline() {
			parts = append(parts, map[string]any{
				"inlineData": map[string]any{
					"mimeType": p.MimeType,
					"data":     base64.StdEncoding.EncodeToString(p.Data),
				},
			})
			continue
		}
		parts = append(parts, map[string]any{"text": p.Text})
	}
	if len(parts) == 0 {
		parts = append(parts, map[string]any{"text": ""})
	}
	return parts
}

func prependSystem(parts []map[string]any, system string) []map[string]any {
	for _, p := range parts {
		if t, ok := p["text"].(string); ok {
			p["text"] = system + "\n\n" + t
			return parts
		}
	}
	return append([]map[string]any{{"text": system}}, parts...)
}

func (geminiCodec) extract(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", schema.NewError(schema.ErrEmptyResponse, "malformed response body")
	}
	return geminiText(gjson.ParseBytes(body))
}

func (geminiCodec) decodeEvent(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", nil
	}
	return geminiText(gjson.ParseBytes(data))
}

// geminiText checks the block indicators first, then concatenates the text
// of the first candidate's parts in order.
func geminiText(root gjson.Result) (string, error) {
	if err := embeddedError(root); err != nil {
		return "", err
	}
	if reason := root.Get("promptFeedback.blockReason").String(); reason != "" {
		return "", &schema.Error{Kind: schema.ErrSafetyBlocked, Message: reason}
	}

	cand := root.Get("candidates.0")
	var sb strings.Builder
	for _, p := range cand.Get("content.parts").Array() {
		if p.Get("thought").Bool() {
			continue
		}
		sb.WriteString(p.Get("text").String())
	}
	text := sb.String()

	if reason := cand.Get("finishReason").String(); blockFinishReasons[reason] && strings.TrimSpace(text) == "" {
		return "", &schema.Error{Kind: schema.ErrSafetyBlocked, Message: reason}
	}
	return text, nil
}
