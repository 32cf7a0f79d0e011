// Package stream adapts between the SSE-framed and single-response shapes a
// generate call can take: aggregating an upstream stream into one response
// (StreamToNon) and synthesizing a downstream stream from one upstream
// response (NonToStream), per SPEC_FULL.md §4.3.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

// DialectCodec knows how to read streaming deltas from, and write them to,
// one wire dialect's SSE event shape. CodecFor returns the codec for each
// dialect.
type DialectCodec interface {
	// DecodeDelta parses one upstream SSE event into a NIR delta. ok is
	// false for events that carry no generation content (e.g. a Claude
	// "ping" event) and should be skipped.
	DecodeDelta(ev protocol.SSEEvent) (delta protocol.GenerateDelta, ok bool, err error)
	// EncodeStart/EncodeDelta/EncodeUsage/EncodeEnd render the downstream
	// SSE sequence a synthesized stream must reproduce.
	EncodeStart(model string) protocol.SSEEvent
	EncodeDelta(d protocol.GenerateDelta) protocol.SSEEvent
	EncodeUsage(u protocol.Usage) protocol.SSEEvent
	EncodeEnd(stopReason string) protocol.SSEEvent
}

// Aggregate folds a complete upstream SSE event sequence (already parsed;
// see protocol.SSEParser) into a single GenerateResponse, implementing the
// StreamToNon shape adaptation. Per SPEC_FULL.md §4.3, an out-of-order event
// (decode error) discards partial state and returns the error — no retry.
func Aggregate(codec DialectCodec, model string, events []protocol.SSEEvent) (protocol.GenerateResponse, error) {
	resp := protocol.GenerateResponse{Model: model}
	var text string
	toolBlocks := map[int]*protocol.ContentBlock{}
	var toolOrder []int

	for _, ev := range events {
		delta, ok, err := codec.DecodeDelta(ev)
		if err != nil {
			return protocol.GenerateResponse{}, fmt.Errorf("stream: aggregate: %w", err)
		}
		if !ok {
			continue
		}
		text += delta.TextDelta
		if tc := delta.ToolCall; tc != nil {
			block, seen := toolBlocks[tc.Index]
			if !seen {
				block = &protocol.ContentBlock{Type: "tool_use"}
				toolBlocks[tc.Index] = block
				toolOrder = append(toolOrder, tc.Index)
			}
			if tc.ID != "" {
				block.ToolID = tc.ID
			}
			if tc.Name != "" {
				block.ToolName = tc.Name
			}
			block.ToolInput += tc.ArgsDelta
		}
		if delta.StopReason != "" {
			resp.StopReason = delta.StopReason
		}
		if delta.Usage != nil {
			resp.Usage = *delta.Usage
		}
	}

	resp.Content = []protocol.ContentBlock{{Type: "text", Text: text}}
	for _, idx := range toolOrder {
		resp.Content = append(resp.Content, *toolBlocks[idx])
	}
	if resp.StopReason == "" {
		resp.StopReason = "stop"
	}
	return resp, nil
}

// Synthesize builds the downstream SSE event sequence a NonToStream call
// must emit to faithfully represent a single upstream response as a stream:
// a start marker, one content delta carrying the full text, a usage event,
// then a terminal marker — minimally valid even when resp has no content.
func Synthesize(codec DialectCodec, resp protocol.GenerateResponse) []protocol.SSEEvent {
	events := []protocol.SSEEvent{codec.EncodeStart(resp.Model)}

	text := flattenText(resp.Content)
	if text != "" {
		events = append(events, codec.EncodeDelta(protocol.GenerateDelta{TextDelta: text}))
	}

	for i, b := range resp.Content {
		if b.Type != "tool_use" {
			continue
		}
		events = append(events, codec.EncodeDelta(protocol.GenerateDelta{
			ToolCall: &protocol.ToolCallDelta{Index: i, ID: b.ToolID, Name: b.ToolName},
		}))
		if b.ToolInput != "" {
			events = append(events, codec.EncodeDelta(protocol.GenerateDelta{
				ToolCall: &protocol.ToolCallDelta{Index: i, ArgsDelta: b.ToolInput},
			}))
		}
	}

	events = append(events, codec.EncodeUsage(resp.Usage))
	events = append(events, codec.EncodeEnd(resp.StopReason))
	return events
}

func flattenText(blocks []protocol.ContentBlock) string {
	var s string
	for _, b := range blocks {
		s += b.Text
	}
	return s
}

// marshalEvent is a small helper dialect codecs use to build SSE event data
// from a JSON-serializable payload.
func marshalEvent(event string, payload any) protocol.SSEEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		// payload types are always static structs controlled by this package;
		// a marshal failure here indicates a programming error, not bad input.
		panic(fmt.Sprintf("stream: marshal %s event: %v", event, err))
	}
	return protocol.SSEEvent{Event: event, Data: string(data)}
}
