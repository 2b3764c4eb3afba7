package capture

import (
	"math"
	"sort"
	"strings"
)

// choiceState accumulates one choice across the event stream, keyed by the
// choice index.
type choiceState struct {
	role         string
	content      strings.Builder
	toolCalls    map[int]*toolCallState
	finishReason any
}

// toolCallState accumulates one tool call delta sequence within a choice.
// Arguments arrive as fragments of a single JSON string and are only valid
// once fully concatenated, so they are never parsed here.
type toolCallState struct {
	id       string
	hasID    bool
	callType string
	hasType  bool
	name     string
	hasName  bool
	args     strings.Builder
	hasArgs  bool
	hasFunc  bool
}

func (s *toolCallState) merge(fragment map[string]any) {
	if id, ok := fragment["id"].(string); ok {
		s.id = id
		s.hasID = true
	}
	if callType, ok := fragment["type"].(string); ok {
		s.callType = callType
		s.hasType = true
	}
	function, ok := fragment["function"].(map[string]any)
	if !ok {
		return
	}
	s.hasFunc = true
	if name, ok := function["name"].(string); ok {
		s.name = name
		s.hasName = true
	}
	if args, ok := function["arguments"].(string); ok {
		s.args.WriteString(args)
		s.hasArgs = true
	}
}

func (s *toolCallState) finalize() map[string]any {
	toolCall := map[string]any{}
	if s.hasID {
		toolCall["id"] = s.id
	}
	if s.hasType {
		toolCall["type"] = s.callType
	}
	if s.hasFunc {
		function := map[string]any{}
		if s.hasName {
			function["name"] = s.name
		}
		if s.hasArgs {
			function["arguments"] = s.args.String()
		}
		toolCall["function"] = function
	}
	return toolCall
}

// jsonIndex extracts a non-negative integer index from a decoded JSON value.
func jsonIndex(v any) (int, bool) {
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || n < 0 {
		return 0, false
	}
	return int(n), true
}

// Aggregate folds the ordered SSE event sequence of one streamed exchange
// into the single chat-completion object a non-streaming call would have
// returned. It returns nil when the sequence is empty. The id, created and
// model fields are taken verbatim from the first event; usage is the last
// one seen across the stream. Entries with malformed indices are skipped
// rather than failing the whole aggregation, and choices are emitted in
// ascending index order regardless of how their fragments interleaved.
func Aggregate(events []map[string]any) map[string]any {
	if len(events) == 0 {
		return nil
	}

	choices := map[int]*choiceState{}
	var usage map[string]any

	for _, event := range events {
		if u, ok := event["usage"].(map[string]any); ok {
			usage = u
		}

		entries, _ := event["choices"].([]any)
		for _, entry := range entries {
			choice, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			index, ok := jsonIndex(choice["index"])
			if !ok {
				continue
			}
			state := choices[index]
			if state == nil {
				state = &choiceState{toolCalls: map[int]*toolCallState{}}
				choices[index] = state
			}

			if reason, ok := choice["finish_reason"]; ok && reason != nil {
				state.finishReason = reason
			}

			delta, ok := choice["delta"].(map[string]any)
			if !ok {
				// a finish_reason-only entry is legal
				continue
			}

			if role, ok := delta["role"].(string); ok {
				state.role = role
			}
			if content, ok := delta["content"].(string); ok {
				state.content.WriteString(content)
			}

			toolDeltas, _ := delta["tool_calls"].([]any)
			for _, toolDelta := range toolDeltas {
				fragment, ok := toolDelta.(map[string]any)
				if !ok {
					continue
				}
				position, ok := jsonIndex(fragment["index"])
				if !ok {
					continue
				}
				tool := state.toolCalls[position]
				if tool == nil {
					tool = &toolCallState{}
					state.toolCalls[position] = tool
				}
				tool.merge(fragment)
			}
		}
	}

	first := events[0]
	response := map[string]any{
		"id":      first["id"],
		"object":  "chat.completion",
		"created": first["created"],
		"model":   first["model"],
		"choices": finalizeChoices(choices),
	}
	if usage != nil {
		response["usage"] = usage
	}
	return response
}

func finalizeChoices(choices map[int]*choiceState) []map[string]any {
	indices := make([]int, 0, len(choices))
	for index := range choices {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	out := make([]map[string]any, 0, len(indices))
	for _, index := range indices {
		state := choices[index]

		role := state.role
		if role == "" {
			role = "assistant"
		}
		message := map[string]any{"role": role}
		// a choice that produced only tool calls keeps a null content,
		// matching the non-streaming response shape
		if state.content.Len() > 0 {
			message["content"] = state.content.String()
		} else {
			message["content"] = nil
		}
		if len(state.toolCalls) > 0 {
			message["tool_calls"] = finalizeToolCalls(state.toolCalls)
		}

		out = append(out, map[string]any{
			"index":         index,
			"message":       message,
			"finish_reason": state.finishReason,
		})
	}
	return out
}

// finalizeToolCalls materializes the sparse position map into a dense list,
// padding positions that never received a fragment with empty objects.
func finalizeToolCalls(toolCalls map[int]*toolCallState) []map[string]any {
	maxPosition := 0
	for position := range toolCalls {
		if position > maxPosition {
			maxPosition = position
		}
	}

	out := make([]map[string]any, maxPosition+1)
	for position := range out {
		if state := toolCalls[position]; state != nil {
			out[position] = state.finalize()
		} else {
			out[position] = map[string]any{}
		}
	}
	return out
}
