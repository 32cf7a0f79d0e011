package proxy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nulpointcorp/llm-gateway/internal/credential"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestTranslateRequestBodyClaudeToOpenAI(t *testing.T) {
	claudeBody, _ := json.Marshal(map[string]any{
		"model":    "claude-3",
		"messages": []map[string]any{{"role": "user", "content": "hi"}},
	})

	out, err := translateRequestBody(protocol.DialectClaude, protocol.DialectOpenAI, protocol.GenerateContent, claudeBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("translated body is not valid JSON: %v", err)
	}
	if _, ok := decoded["messages"]; !ok {
		t.Fatalf("expected messages field in translated body, got %#v", decoded)
	}
}

func TestTranslateRequestBodyCountTokens(t *testing.T) {
	claudeBody, _ := json.Marshal(map[string]any{
		"model":    "claude-3",
		"messages": []map[string]any{{"role": "user", "content": "hi"}},
	})

	out, err := translateRequestBody(protocol.DialectClaude, protocol.DialectGemini, protocol.CountTokens, claudeBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected non-empty translated body")
	}
}

func TestTranslateRequestBodyPropagatesParseFailure(t *testing.T) {
	if _, err := translateRequestBody(protocol.DialectClaude, protocol.DialectOpenAI, protocol.GenerateContent, []byte("not json")); err == nil {
		t.Fatalf("expected parse failure error")
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := map[int]credential.UnavailableReason{
		429: credential.ReasonRateLimit,
		401: credential.ReasonAuthInvalid,
		403: credential.ReasonAuthInvalid,
		500: credential.ReasonUpstream5xx,
		503: credential.ReasonUpstream5xx,
		400: credential.ReasonUnknown,
		200: credential.ReasonUnknown,
	}
	for status, want := range cases {
		if got := classifyFailure(status); got != want {
			t.Fatalf("classifyFailure(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestCooldownForOrdering(t *testing.T) {
	if cooldownFor(credential.ReasonAuthInvalid) <= cooldownFor(credential.ReasonRateLimit) {
		t.Fatalf("expected auth-invalid cooldown to exceed rate-limit cooldown")
	}
	if cooldownFor(credential.ReasonRateLimit) <= cooldownFor(credential.ReasonUpstream5xx) {
		t.Fatalf("expected rate-limit cooldown to exceed 5xx cooldown")
	}
	if cooldownFor(credential.ReasonUnknown) <= 0 {
		t.Fatalf("expected a positive default cooldown")
	}
}

func TestParseSSEBytesRoundTrips(t *testing.T) {
	raw := "event: content_block_delta\ndata: {\"text\":\"hi\"}\n\nevent: message_stop\ndata: {}\n\n"
	events := parseSSEBytes([]byte(raw))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %#v", len(events), events)
	}
	if events[0].Event != "content_block_delta" || events[1].Event != "message_stop" {
		t.Fatalf("unexpected event names: %#v", events)
	}
}

func TestParseDialectRouteClaudeMessages(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"model": "claude-3", "stream": false})
	dialect, op, model, ok := parseDialectRoute("/v1/messages", body)
	if !ok || dialect != protocol.DialectClaude || op != protocol.GenerateContent || model != "claude-3" {
		t.Fatalf("unexpected route resolution: dialect=%v op=%v model=%q ok=%v", dialect, op, model, ok)
	}
}

func TestParseDialectRouteClaudeMessagesStream(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"model": "claude-3", "stream": true})
	_, op, _, ok := parseDialectRoute("/v1/messages", body)
	if !ok || op != protocol.StreamGenerateContent {
		t.Fatalf("expected stream generate content, got op=%v ok=%v", op, ok)
	}
}

func TestParseDialectRouteOpenAIChatCompletions(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"model": "gpt-4o", "stream": false})
	dialect, op, model, ok := parseDialectRoute("/v1/chat/completions", body)
	if !ok || dialect != protocol.DialectOpenAI || op != protocol.GenerateContent || model != "gpt-4o" {
		t.Fatalf("unexpected route resolution: dialect=%v op=%v model=%q ok=%v", dialect, op, model, ok)
	}
}

func TestParseDialectRouteGeminiGenerateContent(t *testing.T) {
	dialect, op, model, ok := parseDialectRoute("/v1beta/models/gemini-2.0:generateContent", nil)
	if !ok || dialect != protocol.DialectGemini || op != protocol.GenerateContent || model != "gemini-2.0" {
		t.Fatalf("unexpected route resolution: dialect=%v op=%v model=%q ok=%v", dialect, op, model, ok)
	}
}

func TestParseDialectRouteGeminiStreamAndCountTokens(t *testing.T) {
	_, op, _, ok := parseDialectRoute("/v1beta/models/gemini-2.0:streamGenerateContent", nil)
	if !ok || op != protocol.StreamGenerateContent {
		t.Fatalf("expected stream generate content, got op=%v ok=%v", op, ok)
	}

	_, op, _, ok = parseDialectRoute("/v1beta/models/gemini-2.0:countTokens", nil)
	if !ok || op != protocol.CountTokens {
		t.Fatalf("expected count tokens, got op=%v ok=%v", op, ok)
	}
}

func TestParseDialectRouteGeminiListAndGetModel(t *testing.T) {
	_, op, _, ok := parseDialectRoute("/v1beta/models", nil)
	if !ok || op != protocol.ListModels {
		t.Fatalf("expected list models, got op=%v ok=%v", op, ok)
	}

	_, op, model, ok := parseDialectRoute("/v1beta/models/gemini-2.0", nil)
	if !ok || op != protocol.GetModel || model != "gemini-2.0" {
		t.Fatalf("expected get model gemini-2.0, got op=%v model=%q ok=%v", op, model, ok)
	}
}

func TestParseDialectRouteUnknown(t *testing.T) {
	if _, _, _, ok := parseDialectRoute("/unknown/path", nil); ok {
		t.Fatalf("expected unknown path to fail resolution")
	}
}

func TestCooldownForIsBounded(t *testing.T) {
	for _, r := range []credential.UnavailableReason{
		credential.ReasonRateLimit, credential.ReasonUpstream5xx, credential.ReasonAuthInvalid, credential.ReasonUnknown,
	} {
		if d := cooldownFor(r); d <= 0 || d > time.Hour {
			t.Fatalf("cooldownFor(%v) = %v, out of sane bounds", r, d)
		}
	}
}
