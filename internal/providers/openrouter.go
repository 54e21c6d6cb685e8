package providers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pandaai/panda/internal/schema"
)

// openAICodec speaks the OpenAI chat-completions format used by OpenRouter.
type openAICodec struct{}

func (openAICodec) endpoint(apiBase, _, _ string, _ bool) string {
	return strings.TrimRight(apiBase, "/") + "/chat/completions"
}

func (openAICodec) authorize(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

func (openAICodec) encode(req CompletionRequest, stream bool) (map[string]any, error) {
	msgs := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]any{
			"role":    string(m.Role),
			"content": openAIContent(m),
		})
	}

	body := map[string]any{
		"model":       req.Model,
		"messages":    msgs,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}
	if stream {
		body["stream"] = true
	}
	return body, nil
}

// openAIContent returns a plain string for single-text messages and a part
// list otherwise. Images are sent as data URLs built from the raw bytes.
func openAIContent(m Message) any {
	if !m.Multimodal() {
		return m.Text()
	}
	blocks := make([]map[string]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.IsInline() {
			blocks = append(blocks, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": "data:" + p.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
				},
			})
			continue
		}
		blocks = append(blocks, map[string]any{"type": "text", "text": p.Text})
	}
	return blocks
}

func (openAICodec) extract(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", schema.NewError(schema.ErrEmptyResponse, "malformed response body")
	}
	root := gjson.ParseBytes(body)
	if err := embeddedError(root); err != nil {
		return "", err
	}

	choice := root.Get("choices.0")
	if !choice.Exists() {
		return "", schema.NewError(schema.ErrEmptyResponse, "response has no choices")
	}

	text := contentText(choice.Get("message.content"))
	if strings.TrimSpace(text) == "" && choice.Get("finish_reason").String() == "content_filter" {
		return "", &schema.Error{Kind: schema.ErrSafetyBlocked, Message: "content_filter"}
	}
	return text, nil
}

func (openAICodec) decodeEvent(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", nil
	}
	root := gjson.ParseBytes(data)
	if err := embeddedError(root); err != nil {
		return "", err
	}
	choice := root.Get("choices.0")
	if choice.Get("finish_reason").String() == "content_filter" {
		return "", &schema.Error{Kind: schema.ErrSafetyBlocked, Message: "content_filter"}
	}
	return contentText(choice.Get("delta.content")), nil
}

// contentText accepts either a string or a list of {type:"text",text} blocks.
func contentText(v gjson.Result) string {
	if v.IsArray() {
		var sb strings.Builder
		for _, b := range v.Array() {
			sb.WriteString(b.Get("text").String())
		}
		return sb.String()
	}
	return v.String()
}

// embeddedError handles gateways that answer 200 with {"error":{...}}.
func embeddedError(root gjson.Result) error {
	e := root.Get("error")
	if !e.Exists() {
		return nil
	}
	msg := e.Get("message").String()
	if msg == "" {
		msg = e.String()
	}
	status := int(e.Get("code").Int())
	kind := schema.KindForStatus(status)
	if kind == schema.ErrUnknown {
		kind = schema.ErrServer
	}
	return &schema.Error{Kind: kind, Status: status, Message: msg}
}
