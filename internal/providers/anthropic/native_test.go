package anthropic

import (
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestNativeAdapterDialectAndTable(t *testing.T) {
	a := NewNativeAdapter(New("key"), 7)
	if a.Dialect() != protocol.DialectClaude {
		t.Fatalf("expected DialectClaude, got %v", a.Dialect())
	}

	table := a.DispatchTable()
	for _, op := range []protocol.Operation{
		protocol.GenerateContent, protocol.StreamGenerateContent, protocol.CountTokens,
	} {
		resolved := dispatch.ResolveCallShape(table, protocol.DialectClaude, op)
		if resolved == nil || resolved.ProviderProto != protocol.DialectClaude || resolved.Mode != dispatch.Same {
			t.Fatalf("expected %v to resolve native same-shape, got %#v", op, resolved)
		}
	}
}

func TestBuildGenerateParamsDefaultsMaxTokens(t *testing.T) {
	a := NewNativeAdapter(New("key"), 1)
	nir := protocol.GenerateRequest{
		Model:    "claude-3",
		System:   "be terse",
		Messages: []protocol.Message{{Role: protocol.RoleUser, Content: []protocol.ContentBlock{{Type: "text", Text: "hi"}}}},
	}

	params := a.buildGenerateParams(nir)
	if int(params.MaxTokens) != defaultMaxTokens {
		t.Fatalf("expected default max tokens %d, got %d", defaultMaxTokens, params.MaxTokens)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(params.Messages))
	}
	if len(params.System) != 1 || params.System[0].Text != "be terse" {
		t.Fatalf("expected system prompt carried through, got %#v", params.System)
	}
}

func TestBuildGenerateParamsRespectsExplicitMaxTokens(t *testing.T) {
	a := NewNativeAdapter(New("key"), 1)
	nir := protocol.GenerateRequest{Model: "claude-3", MaxTokens: 512}

	params := a.buildGenerateParams(nir)
	if params.MaxTokens != 512 {
		t.Fatalf("expected explicit max tokens 512, got %d", params.MaxTokens)
	}
}

func TestToSDKMessagesRoleMapping(t *testing.T) {
	msgs := []protocol.Message{
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{{Type: "text", Text: "q"}}},
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{{Type: "text", Text: "a"}}},
	}
	out := toSDKMessages(msgs)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[0].Role != "user" {
		t.Fatalf("expected first message role user, got %v", out[0].Role)
	}
	if out[1].Role != "assistant" {
		t.Fatalf("expected second message role assistant, got %v", out[1].Role)
	}
}
