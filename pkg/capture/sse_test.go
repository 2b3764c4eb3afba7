package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEventStream(t *testing.T) {
	assert.True(t, IsEventStream("text/event-stream"))
	assert.True(t, IsEventStream("TEXT/EVENT-STREAM"))
	assert.True(t, IsEventStream("text/event-stream; charset=utf-8"))
	assert.False(t, IsEventStream("application/json"))
	assert.False(t, IsEventStream(""))
}

func TestParseSSE(t *testing.T) {
	t.Run("parses data lines in order", func(t *testing.T) {
		body := "data: {\"id\": 1}\n\ndata: {\"id\": 2}\n\ndata: [DONE]\n"
		events := ParseSSE(body)

		assert.Equal(t, []map[string]any{{"id": float64(1)}, {"id": float64(2)}}, events)
	})

	t.Run("stops at the DONE sentinel", func(t *testing.T) {
		body := "data: {\"id\": 1}\ndata: [DONE]\ndata: {\"id\": 2}\n"
		events := ParseSSE(body)

		assert.Len(t, events, 1)
		assert.Equal(t, float64(1), events[0]["id"])
	})

	t.Run("scans to the end without a terminator", func(t *testing.T) {
		body := "data: {\"id\": 1}\ndata: {\"id\": 2}"
		events := ParseSSE(body)

		assert.Len(t, events, 2)
	})

	t.Run("ignores non-data lines", func(t *testing.T) {
		body := "event: message\n: comment\nretry: 100\n\ndata: {\"ok\": true}\n"
		events := ParseSSE(body)

		assert.Equal(t, []map[string]any{{"ok": true}}, events)
	})

	t.Run("discards malformed and non-object payloads", func(t *testing.T) {
		body := "data: not json\ndata: [1, 2]\ndata: \"text\"\ndata: null\ndata: {\"ok\": true}\n"
		events := ParseSSE(body)

		assert.Equal(t, []map[string]any{{"ok": true}}, events)
	})

	t.Run("skips empty data lines", func(t *testing.T) {
		body := "data:\ndata:   \ndata: {\"ok\": true}\n"
		events := ParseSSE(body)

		assert.Len(t, events, 1)
	})

	t.Run("tolerates surrounding whitespace and CRLF", func(t *testing.T) {
		body := "  data: {\"ok\": true}  \r\ndata: [DONE]\r\n"
		events := ParseSSE(body)

		assert.Equal(t, []map[string]any{{"ok": true}}, events)
	})

	t.Run("empty body yields no events", func(t *testing.T) {
		assert.Empty(t, ParseSSE(""))
	})
}
