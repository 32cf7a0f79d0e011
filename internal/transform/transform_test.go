package transform

import (
	"encoding/json"
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestGenerateRequestCrossDialect(t *testing.T) {
	claudeBody := []byte(`{"model":"alpha","system":"be terse","messages":[{"role":"user","content":"hi"}],"max_tokens":100}`)

	nir, err := GenerateRequestToNIR(protocol.DialectClaude, claudeBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nir.System != "be terse" || len(nir.Messages) != 1 {
		t.Fatalf("unexpected NIR: %#v", nir)
	}

	openaiBody, err := GenerateRequestFromNIR(protocol.DialectOpenAI, nir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back, err := GenerateRequestToNIR(protocol.DialectOpenAI, openaiBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.System != "be terse" || back.Messages[0].Content[0].Text != "hi" {
		t.Fatalf("round-trip lost data: %#v", back)
	}
}

func TestCountTokensClaudeEchoesOriginalInputTokens(t *testing.T) {
	body, err := CountTokensResponseFromNIR(protocol.DialectClaude, protocol.CountTokensResponse{InputTokens: 17})
	if err != nil {
		t.Fatal(err)
	}
	var resp ClaudeCountTokensResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ContextManagement == nil || resp.ContextManagement.OriginalInputTokens != 17 {
		t.Fatalf("expected original_input_tokens echo, got %#v", resp)
	}
}

func TestModelIDNormalizationIdempotence(t *testing.T) {
	ids := []string{"gemini-pro", "models/gemini-pro", ""}
	for _, id := range ids {
		twice := protocol.AddModelsPrefix(protocol.AddModelsPrefix(id))
		once := protocol.AddModelsPrefix(id)
		if twice != once {
			t.Fatalf("AddModelsPrefix not idempotent for %q: %q vs %q", id, once, twice)
		}
	}
}

func TestClampTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want uint32
	}{
		{-5, 0},
		{0, 0},
		{100, 100},
		{int64(^uint32(0)) + 100, ^uint32(0)},
	}
	for _, c := range cases {
		if got := protocol.ClampTokens(c.in); got != c.want {
			t.Errorf("ClampTokens(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestGeminiModelIDCrossesDialectsUnprefixed(t *testing.T) {
	geminiResp := GeminiListModelsResponse{Models: []GeminiModel{{Name: "models/gemini-2.5-flash", Version: "002"}}}
	nir := GeminiListModelsResponseToNIR(geminiResp)
	if nir.Models[0].ID != "gemini-2.5-flash" {
		t.Fatalf("expected stripped id, got %q", nir.Models[0].ID)
	}

	openai := OpenAIListModelsResponseFromNIR(nir)
	if openai.Data[0].ID != "gemini-2.5-flash" {
		t.Fatalf("expected unprefixed id for openai dialect, got %q", openai.Data[0].ID)
	}

	back := GeminiListModelsResponseFromNIR(nir)
	if back.Models[0].Name != "models/gemini-2.5-flash" {
		t.Fatalf("expected re-prefixed id for gemini dialect, got %q", back.Models[0].Name)
	}
}
