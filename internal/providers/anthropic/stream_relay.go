package anthropic

import (
	"encoding/json"
	"io"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func pipe() (io.Reader, io.WriteCloser) {
	return io.Pipe()
}

// encodeClaudeStreamEvent re-encodes one SDK streaming event into the same
// Claude-dialect SSE wire shape stream.ClaudeCodec decodes. ok is false for
// event kinds the codec ignores (message_start, ping, content_block_start
// and _stop carry no incremental text or usage).
func encodeClaudeStreamEvent(ev anthropic.MessageStreamEventUnion) (protocol.SSEEvent, bool) {
	switch v := ev.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		td, ok := v.Delta.AsAny().(anthropic.TextDelta)
		if !ok || td.Text == "" {
			return protocol.SSEEvent{}, false
		}
		body, _ := json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"delta": map[string]any{"type": "text_delta", "text": td.Text},
		})
		return protocol.SSEEvent{Event: "content_block_delta", Data: string(body)}, true
	case anthropic.MessageDeltaEvent:
		body, _ := json.Marshal(map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": string(v.Delta.StopReason)},
			"usage": map[string]any{
				"input_tokens":  v.Usage.InputTokens,
				"output_tokens": v.Usage.OutputTokens,
			},
		})
		return protocol.SSEEvent{Event: "message_delta", Data: string(body)}, true
	case anthropic.MessageStopEvent:
		return protocol.SSEEvent{Event: "message_stop", Data: `{"type":"message_stop"}`}, true
	default:
		return protocol.SSEEvent{}, false
	}
}
