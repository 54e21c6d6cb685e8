package providers

import (
	"bufio"
	"io"
	"strings"
)

const maxSSELine = 1 << 20

// ReadEvents consumes a text/event-stream body and calls fn with the joined
// data payload of every event. The OpenAI "[DONE]" sentinel ends the stream.
// A non-nil error from fn stops reading and is returned.
func ReadEvents(body io.Reader, fn func(data []byte) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSSELine)

	var buf []string
	flush := func() (done bool, err error) {
		if len(buf) == 0 {
			return false, nil
		}
		data := strings.Join(buf, "\n")
		buf = buf[:0]
		if strings.TrimSpace(data) == "[DONE]" {
			return true, nil
		}
		return false, fn([]byte(data))
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			done, err := flush()
			if err != nil || done {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / keep-alive
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			buf = append(buf, strings.TrimPrefix(v, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	_, err := flush()
	return err
}

// isEventStream reports whether a content type denotes SSE.
func isEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}
