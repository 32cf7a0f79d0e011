package stream

import (
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestAggregateClaudeStream(t *testing.T) {
	codec := ClaudeCodec{}
	events := []protocol.SSEEvent{
		{Event: "message_start", Data: `{"type":"message_start"}`},
		{Event: "content_block_delta", Data: `{"type":"content_block_delta","delta":{"type":"text_delta","text":"he"}}`},
		{Event: "content_block_delta", Data: `{"type":"content_block_delta","delta":{"type":"text_delta","text":"llo"}}`},
		{Event: "message_delta", Data: `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"input_tokens":3,"output_tokens":2}}`},
		{Event: "message_stop", Data: `{"type":"message_stop"}`},
	}

	resp, err := Aggregate(codec, "claude-x", events)
	if err != nil {
		t.Fatal(err)
	}
	if flattenText(resp.Content) != "hello" {
		t.Fatalf("expected 'hello', got %q", flattenText(resp.Content))
	}
	if resp.Usage.InputTokens != 3 || resp.Usage.OutputTokens != 2 {
		t.Fatalf("unexpected usage: %#v", resp.Usage)
	}
	if resp.StopReason != "end_turn" {
		t.Fatalf("expected end_turn, got %q", resp.StopReason)
	}
}

func TestSynthesizeProducesStartContentUsageEnd(t *testing.T) {
	codec := OpenAICodec{}
	resp := protocol.GenerateResponse{
		Model:      "gpt-x",
		Content:    []protocol.ContentBlock{{Type: "text", Text: "world"}},
		StopReason: "stop",
		Usage:      protocol.Usage{InputTokens: 2, OutputTokens: 1},
	}

	events := Synthesize(codec, resp)
	if len(events) != 4 {
		t.Fatalf("expected start+delta+usage+end, got %d events: %#v", len(events), events)
	}
}

func TestSynthesizeMinimalWhenEmpty(t *testing.T) {
	codec := ClaudeCodec{}
	events := Synthesize(codec, protocol.GenerateResponse{Model: "claude-x"})
	// start + usage + end, no content delta
	if len(events) != 3 {
		t.Fatalf("expected 3 minimal events, got %d: %#v", len(events), events)
	}
}

func TestAggregateOutOfOrderEventDiscardsState(t *testing.T) {
	codec := ClaudeCodec{}
	events := []protocol.SSEEvent{
		{Event: "content_block_delta", Data: `not json`},
	}
	if _, err := Aggregate(codec, "m", events); err == nil {
		t.Fatal("expected an error for malformed delta event")
	}
}

func TestAggregateClaudeStreamWithToolCall(t *testing.T) {
	codec := ClaudeCodec{}
	events := []protocol.SSEEvent{
		{Event: "message_start", Data: `{"type":"message_start"}`},
		{Event: "content_block_delta", Data: `{"type":"content_block_delta","delta":{"type":"text_delta","text":"checking weather"}}`},
		{Event: "content_block_start", Data: `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather"}}`},
		{Event: "content_block_delta", Data: `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"loc\":"}}`},
		{Event: "content_block_delta", Data: `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"NYC\"}"}}`},
		{Event: "content_block_stop", Data: `{"type":"content_block_stop","index":1}`},
		{Event: "message_delta", Data: `{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"input_tokens":5,"output_tokens":4}}`},
		{Event: "message_stop", Data: `{"type":"message_stop"}`},
	}

	resp, err := Aggregate(codec, "claude-x", events)
	if err != nil {
		t.Fatal(err)
	}
	if flattenText(resp.Content) != "checking weather" {
		t.Fatalf("expected text preserved alongside tool call, got %q", flattenText(resp.Content))
	}
	if len(resp.Content) != 2 {
		t.Fatalf("expected a text block and a tool_use block, got %d: %#v", len(resp.Content), resp.Content)
	}
	tool := resp.Content[1]
	if tool.Type != "tool_use" || tool.ToolID != "toolu_1" || tool.ToolName != "get_weather" {
		t.Fatalf("unexpected tool block: %#v", tool)
	}
	if tool.ToolInput != `{"loc":"NYC"}` {
		t.Fatalf("expected accumulated tool input, got %q", tool.ToolInput)
	}
	if resp.StopReason != "tool_use" {
		t.Fatalf("expected tool_use stop reason, got %q", resp.StopReason)
	}
}

func TestAggregateOpenAIStreamWithToolCall(t *testing.T) {
	codec := OpenAICodec{}
	events := []protocol.SSEEvent{
		{Data: `{"object":"chat.completion.chunk","choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"get_weather","arguments":""}}]},"finish_reason":null}]}`},
		{Data: `{"object":"chat.completion.chunk","choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"loc\":"}}]},"finish_reason":null}]}`},
		{Data: `{"object":"chat.completion.chunk","choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"NYC\"}"}}]},"finish_reason":"tool_calls"}]}`},
		{Data: `[DONE]`},
	}

	resp, err := Aggregate(codec, "gpt-x", events)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Content) != 2 {
		t.Fatalf("expected a text block and a tool_use block, got %d: %#v", len(resp.Content), resp.Content)
	}
	tool := resp.Content[1]
	if tool.ToolID != "call_1" || tool.ToolName != "get_weather" {
		t.Fatalf("unexpected tool block: %#v", tool)
	}
	if tool.ToolInput != `{"loc":"NYC"}` {
		t.Fatalf("expected accumulated tool input, got %q", tool.ToolInput)
	}
	if resp.StopReason != "tool_calls" {
		t.Fatalf("expected tool_calls stop reason, got %q", resp.StopReason)
	}
}

func TestSynthesizeIncludesToolCallEvents(t *testing.T) {
	codec := ClaudeCodec{}
	resp := protocol.GenerateResponse{
		Model: "claude-x",
		Content: []protocol.ContentBlock{
			{Type: "text", Text: "on it"},
			{Type: "tool_use", ToolID: "toolu_1", ToolName: "get_weather", ToolInput: `{"loc":"NYC"}`},
		},
		StopReason: "tool_use",
		Usage:      protocol.Usage{InputTokens: 5, OutputTokens: 4},
	}

	events := Synthesize(codec, resp)
	// start + text delta + tool start + tool arg delta + usage + end
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d: %#v", len(events), events)
	}
	if events[2].Event != "content_block_start" {
		t.Fatalf("expected tool start event at index 2, got %q", events[2].Event)
	}
	if events[3].Event != "content_block_delta" {
		t.Fatalf("expected tool arg delta event at index 3, got %q", events[3].Event)
	}
}
