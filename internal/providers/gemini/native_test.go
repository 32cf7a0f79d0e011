package gemini

import (
	"context"
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestNativeAdapterDialectAndTable(t *testing.T) {
	a := NewNativeAdapter(New(context.Background(), "key"), 2)
	if a.Dialect() != protocol.DialectGemini {
		t.Fatalf("expected DialectGemini, got %v", a.Dialect())
	}

	table := a.DispatchTable()
	for _, op := range []protocol.Operation{
		protocol.GenerateContent, protocol.StreamGenerateContent, protocol.CountTokens,
	} {
		resolved := dispatch.ResolveCallShape(table, protocol.DialectGemini, op)
		if resolved == nil || resolved.ProviderProto != protocol.DialectGemini || resolved.Mode != dispatch.Same {
			t.Fatalf("expected %v to resolve native same-shape, got %#v", op, resolved)
		}
	}
}

func TestNirToContentsBuildsConfigOnlyWhenNeeded(t *testing.T) {
	nir := protocol.GenerateRequest{
		Model:    "gemini-2.0",
		Messages: []protocol.Message{{Role: protocol.RoleUser, Content: []protocol.ContentBlock{{Text: "hi"}}}},
	}
	contents, cfg := nirToContents(nir)
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	if cfg != nil {
		t.Fatalf("expected nil config with no system/temperature/max_tokens set, got %#v", cfg)
	}
}

func TestNirToContentsPopulatesConfig(t *testing.T) {
	nir := protocol.GenerateRequest{
		Model:       "gemini-2.0",
		System:      "be terse",
		Temperature: 0.5,
		MaxTokens:   128,
		Messages:    []protocol.Message{{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{{Text: "hi"}}}},
	}
	_, cfg := nirToContents(nir)
	if cfg == nil {
		t.Fatalf("expected non-nil config")
	}
	if cfg.SystemInstruction == nil || cfg.MaxOutputTokens != 128 {
		t.Fatalf("expected system instruction and max tokens carried through, got %#v", cfg)
	}
}

func TestFlattenPartsConcatenatesBlocks(t *testing.T) {
	got := flattenParts([]protocol.ContentBlock{{Text: "a"}, {Text: "b"}})
	if got != "ab" {
		t.Fatalf("expected concatenated text 'ab', got %q", got)
	}
}
