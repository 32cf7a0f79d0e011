package openai

import (
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestNativeAdapterDialectAndTable(t *testing.T) {
	a := NewNativeAdapter(New("key"), 3)
	if a.Dialect() != protocol.DialectOpenAI {
		t.Fatalf("expected DialectOpenAI, got %v", a.Dialect())
	}

	table := a.DispatchTable()
	for _, op := range []protocol.Operation{protocol.GenerateContent, protocol.StreamGenerateContent} {
		resolved := dispatch.ResolveCallShape(table, protocol.DialectOpenAI, op)
		if resolved == nil || resolved.ProviderProto != protocol.DialectOpenAI || resolved.Mode != dispatch.Same {
			t.Fatalf("expected %v to resolve native same-shape, got %#v", op, resolved)
		}
	}

	if resolved := dispatch.ResolveCallShape(table, protocol.DialectOpenAI, protocol.CountTokens); resolved != nil {
		t.Fatalf("expected CountTokens unsupported for openai, got %#v", resolved)
	}
}

func TestBuildChatParamsPrependsSystemMessage(t *testing.T) {
	a := NewNativeAdapter(New("key"), 1)
	nir := protocol.GenerateRequest{
		Model:  "gpt-4o",
		System: "be terse",
		Messages: []protocol.Message{
			{Role: protocol.RoleUser, Content: []protocol.ContentBlock{{Type: "text", Text: "hi"}}},
			{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{{Type: "text", Text: "hello"}}},
		},
	}

	params := a.buildChatParams(nir)
	if len(params.Messages) != 3 {
		t.Fatalf("expected system + 2 messages, got %d", len(params.Messages))
	}
	if params.Model != "gpt-4o" {
		t.Fatalf("expected model gpt-4o, got %s", params.Model)
	}
}

func TestBuildChatParamsWithoutSystem(t *testing.T) {
	a := NewNativeAdapter(New("key"), 1)
	nir := protocol.GenerateRequest{
		Model:    "gpt-4o",
		Messages: []protocol.Message{{Role: protocol.RoleUser, Content: []protocol.ContentBlock{{Type: "text", Text: "hi"}}}},
	}

	params := a.buildChatParams(nir)
	if len(params.Messages) != 1 {
		t.Fatalf("expected 1 message with no system prompt, got %d", len(params.Messages))
	}
}

func TestFlattenTextConcatenatesBlocks(t *testing.T) {
	got := flattenText([]protocol.ContentBlock{{Text: "a"}, {Text: "b"}})
	if got != "ab" {
		t.Fatalf("expected concatenated text 'ab', got %q", got)
	}
}
