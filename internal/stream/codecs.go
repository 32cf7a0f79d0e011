package stream

import (
	"encoding/json"
	"fmt"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

// ── Claude-style codec ───────────────────────────────────────────────────────

type claudeStreamEvent struct {
	Type         string                   `json:"type"`
	Index        int                      `json:"index,omitempty"`
	ContentBlock *claudeContentBlockStart `json:"content_block,omitempty"`
	Delta        *claudeStreamDelta       `json:"delta,omitempty"`
	Usage        *claudeStreamUsage       `json:"usage,omitempty"`
}

type claudeContentBlockStart struct {
	Type string `json:"type"` // "text" or "tool_use"
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type claudeStreamDelta struct {
	Type        string `json:"type"` // "text_delta" or "input_json_delta"
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

type claudeStreamUsage struct {
	InputTokens  uint32 `json:"input_tokens"`
	OutputTokens uint32 `json:"output_tokens"`
}

type ClaudeCodec struct{}

func (ClaudeCodec) DecodeDelta(ev protocol.SSEEvent) (protocol.GenerateDelta, bool, error) {
	switch ev.Event {
	case "ping", "message_start", "content_block_stop":
		return protocol.GenerateDelta{}, false, nil
	case "content_block_start":
		var e claudeStreamEvent
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return protocol.GenerateDelta{}, false, fmt.Errorf("claude: %w", err)
		}
		if e.ContentBlock == nil || e.ContentBlock.Type != "tool_use" {
			return protocol.GenerateDelta{}, false, nil
		}
		return protocol.GenerateDelta{ToolCall: &protocol.ToolCallDelta{
			Index: e.Index, ID: e.ContentBlock.ID, Name: e.ContentBlock.Name,
		}}, true, nil
	case "content_block_delta":
		var e claudeStreamEvent
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return protocol.GenerateDelta{}, false, fmt.Errorf("claude: %w", err)
		}
		if e.Delta == nil {
			return protocol.GenerateDelta{}, false, nil
		}
		if e.Delta.Type == "input_json_delta" {
			return protocol.GenerateDelta{ToolCall: &protocol.ToolCallDelta{Index: e.Index, ArgsDelta: e.Delta.PartialJSON}}, true, nil
		}
		return protocol.GenerateDelta{TextDelta: e.Delta.Text}, true, nil
	case "message_delta":
		var e claudeStreamEvent
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return protocol.GenerateDelta{}, false, fmt.Errorf("claude: %w", err)
		}
		d := protocol.GenerateDelta{}
		if e.Delta != nil {
			d.StopReason = e.Delta.StopReason
		}
		if e.Usage != nil {
			d.Usage = &protocol.Usage{InputTokens: e.Usage.InputTokens, OutputTokens: e.Usage.OutputTokens}
		}
		return d, true, nil
	case "message_stop":
		return protocol.GenerateDelta{}, false, nil
	default:
		return protocol.GenerateDelta{}, false, nil
	}
}

func (ClaudeCodec) EncodeStart(model string) protocol.SSEEvent {
	return marshalEvent("message_start", map[string]any{
		"type":    "message_start",
		"message": map[string]any{"model": model, "role": "assistant"},
	})
}

func (ClaudeCodec) EncodeDelta(d protocol.GenerateDelta) protocol.SSEEvent {
	if tc := d.ToolCall; tc != nil {
		if tc.ID != "" || tc.Name != "" {
			return marshalEvent("content_block_start", claudeStreamEvent{
				Type:         "content_block_start",
				Index:        tc.Index,
				ContentBlock: &claudeContentBlockStart{Type: "tool_use", ID: tc.ID, Name: tc.Name},
			})
		}
		return marshalEvent("content_block_delta", claudeStreamEvent{
			Type:  "content_block_delta",
			Index: tc.Index,
			Delta: &claudeStreamDelta{Type: "input_json_delta", PartialJSON: tc.ArgsDelta},
		})
	}
	return marshalEvent("content_block_delta", claudeStreamEvent{
		Type:  "content_block_delta",
		Delta: &claudeStreamDelta{Type: "text_delta", Text: d.TextDelta},
	})
}

func (ClaudeCodec) EncodeUsage(u protocol.Usage) protocol.SSEEvent {
	return marshalEvent("message_delta", claudeStreamEvent{
		Type:  "message_delta",
		Usage: &claudeStreamUsage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens},
	})
}

func (ClaudeCodec) EncodeEnd(stopReason string) protocol.SSEEvent {
	if stopReason == "" {
		stopReason = "end_turn"
	}
	return marshalEvent("message_stop", claudeStreamEvent{Type: "message_stop"})
}

// ── Gemini-style codec ───────────────────────────────────────────────────────
//
// Gemini's streamGenerateContent endpoint emits one full GenerateContentResponse
// JSON object per SSE "data:" line (no distinct event name); each carries an
// incremental slice of the candidate's parts.

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiStreamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text         string              `json:"text,omitempty"`
				FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     uint32 `json:"promptTokenCount"`
		CandidatesTokenCount uint32 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type GeminiCodec struct{}

// Gemini streams a function call whole in one part (no incremental args), so
// DecodeDelta surfaces it as a single ToolCall delta carrying both Name and
// the complete ArgsDelta rather than a separate start/arg pair.
func (GeminiCodec) DecodeDelta(ev protocol.SSEEvent) (protocol.GenerateDelta, bool, error) {
	if ev.Data == "" {
		return protocol.GenerateDelta{}, false, nil
	}
	var chunk geminiStreamChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return protocol.GenerateDelta{}, false, fmt.Errorf("gemini: %w", err)
	}
	d := protocol.GenerateDelta{
		Usage: &protocol.Usage{
			InputTokens:  chunk.UsageMetadata.PromptTokenCount,
			OutputTokens: chunk.UsageMetadata.CandidatesTokenCount,
		},
	}
	if len(chunk.Candidates) > 0 {
		for i, p := range chunk.Candidates[0].Content.Parts {
			if p.FunctionCall != nil {
				d.ToolCall = &protocol.ToolCallDelta{Index: i, Name: p.FunctionCall.Name, ArgsDelta: string(p.FunctionCall.Args)}
				continue
			}
			d.TextDelta += p.Text
		}
		d.StopReason = chunk.Candidates[0].FinishReason
	}
	return d, true, nil
}

func (GeminiCodec) EncodeStart(model string) protocol.SSEEvent {
	return marshalEvent("", geminiStreamChunk{})
}

func (GeminiCodec) EncodeDelta(d protocol.GenerateDelta) protocol.SSEEvent {
	chunk := geminiStreamChunk{}
	chunk.Candidates = []struct {
		Content struct {
			Parts []struct {
				Text         string              `json:"text,omitempty"`
				FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	}{{}}
	type part = struct {
		Text         string              `json:"text,omitempty"`
		FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
	}
	if tc := d.ToolCall; tc != nil {
		chunk.Candidates[0].Content.Parts = []part{{
			FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: json.RawMessage(nonEmptyJSON(tc.ArgsDelta))},
		}}
	} else {
		chunk.Candidates[0].Content.Parts = []part{{Text: d.TextDelta}}
	}
	return marshalEvent("", chunk)
}

func nonEmptyJSON(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}

func (GeminiCodec) EncodeUsage(u protocol.Usage) protocol.SSEEvent {
	chunk := geminiStreamChunk{}
	chunk.UsageMetadata.PromptTokenCount = u.InputTokens
	chunk.UsageMetadata.CandidatesTokenCount = u.OutputTokens
	return marshalEvent("", chunk)
}

func (GeminiCodec) EncodeEnd(stopReason string) protocol.SSEEvent {
	if stopReason == "" {
		stopReason = "STOP"
	}
	chunk := geminiStreamChunk{}
	chunk.Candidates = make([]struct {
		Content struct {
			Parts []struct {
				Text         string              `json:"text,omitempty"`
				FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	}, 1)
	chunk.Candidates[0].FinishReason = stopReason
	return marshalEvent("", chunk)
}

// ── OpenAI-style codec ───────────────────────────────────────────────────────

type openaiToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type openaiStreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Object  string `json:"object"`
	Choices []struct {
		Delta struct {
			Content   string                `json:"content,omitempty"`
			ToolCalls []openaiToolCallDelta `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     uint32 `json:"prompt_tokens"`
		CompletionTokens uint32 `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

type OpenAICodec struct{}

func (OpenAICodec) DecodeDelta(ev protocol.SSEEvent) (protocol.GenerateDelta, bool, error) {
	if ev.Data == "[DONE]" {
		return protocol.GenerateDelta{}, false, nil
	}
	var chunk openaiStreamChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return protocol.GenerateDelta{}, false, fmt.Errorf("openai: %w", err)
	}
	d := protocol.GenerateDelta{}
	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		d.TextDelta = choice.Delta.Content
		if len(choice.Delta.ToolCalls) > 0 {
			tc := choice.Delta.ToolCalls[0]
			d.ToolCall = &protocol.ToolCallDelta{Index: tc.Index, ID: tc.ID, Name: tc.Function.Name, ArgsDelta: tc.Function.Arguments}
		}
		if choice.FinishReason != nil {
			d.StopReason = *choice.FinishReason
		}
	}
	if chunk.Usage != nil {
		d.Usage = &protocol.Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
	}
	return d, true, nil
}

func (OpenAICodec) EncodeStart(model string) protocol.SSEEvent {
	return marshalEvent("", openaiStreamChunk{Object: "chat.completion.chunk", Model: model})
}

func (OpenAICodec) EncodeDelta(d protocol.GenerateDelta) protocol.SSEEvent {
	chunk := openaiStreamChunk{Object: "chat.completion.chunk"}
	chunk.Choices = make([]struct {
		Delta struct {
			Content   string                `json:"content,omitempty"`
			ToolCalls []openaiToolCallDelta `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	}, 1)
	if tc := d.ToolCall; tc != nil {
		call := openaiToolCallDelta{Index: tc.Index, ID: tc.ID}
		call.Function.Name = tc.Name
		call.Function.Arguments = tc.ArgsDelta
		chunk.Choices[0].Delta.ToolCalls = []openaiToolCallDelta{call}
	} else {
		chunk.Choices[0].Delta.Content = d.TextDelta
	}
	return marshalEvent("", chunk)
}

func (OpenAICodec) EncodeUsage(u protocol.Usage) protocol.SSEEvent {
	chunk := openaiStreamChunk{Object: "chat.completion.chunk"}
	chunk.Usage = &struct {
		PromptTokens     uint32 `json:"prompt_tokens"`
		CompletionTokens uint32 `json:"completion_tokens"`
	}{PromptTokens: u.InputTokens, CompletionTokens: u.OutputTokens}
	return marshalEvent("", chunk)
}

func (OpenAICodec) EncodeEnd(stopReason string) protocol.SSEEvent {
	if stopReason == "" {
		stopReason = "stop"
	}
	return protocol.SSEEvent{Data: "[DONE]"}
}

// CodecFor returns the DialectCodec for a downstream dialect.
func CodecFor(d protocol.Dialect) DialectCodec {
	switch d {
	case protocol.DialectClaude:
		return ClaudeCodec{}
	case protocol.DialectGemini:
		return GeminiCodec{}
	case protocol.DialectOpenAI:
		return OpenAICodec{}
	default:
		return nil
	}
}
