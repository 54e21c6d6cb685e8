package providers

import (
	"strings"

	"github.com/pandaai/panda/internal/schema"
)

// Extract reduces a successful provider body to its completion text.
//
// The safety-block indicator is checked before any text is read, and a body
// that parses but yields only whitespace fails with ErrEmptyResponse.
func Extract(family Family, body []byte) (string, error) {
	text, err := codecFor(family).extract(body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", schema.NewError(schema.ErrEmptyResponse, "provider returned no text")
	}
	return text, nil
}

// DecodeEvent extracts the text fragment carried by one streaming event.
// An empty fragment with a nil error means the event carried no text.
func DecodeEvent(family Family, data []byte) (string, error) {
	return codecFor(family).decodeEvent(data)
}
