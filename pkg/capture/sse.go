package capture

import (
	"strings"

	"github.com/bytedance/sonic"
)

// doneSentinel is the authoritative end-of-stream marker; every data line
// after it is ignored.
const doneSentinel = "[DONE]"

// IsEventStream reports whether the content type indicates an SSE body.
func IsEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}

// ParseSSE parses the full decoded text of an SSE response into the ordered
// sequence of JSON object events carried on its data lines. Only the data
// channel is read: event names, comments and blank separators are skipped,
// and so are data lines that fail to decode to a JSON object. Parsing is
// stateless and safe to re-run over the same body.
func ParseSSE(body string) []map[string]any {
	var events []map[string]any
	for _, rawLine := range strings.Split(body, "\n") {
		line := strings.TrimSpace(rawLine)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payloadText := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payloadText == "" {
			continue
		}
		if payloadText == doneSentinel {
			break
		}
		var event map[string]any
		if err := sonic.UnmarshalString(payloadText, &event); err != nil || event == nil {
			continue
		}
		events = append(events, event)
	}
	return events
}
