package dispatch

import (
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func TestResolveCallShapeSamePreferred(t *testing.T) {
	table := NewTable(protocol.DialectClaude, []protocol.Operation{
		protocol.GenerateContent, protocol.StreamGenerateContent, protocol.CountTokens,
	})

	rc := ResolveCallShape(table, protocol.DialectClaude, protocol.StreamGenerateContent)
	if rc == nil || rc.Mode != Same || rc.ProviderProto != protocol.DialectClaude {
		t.Fatalf("expected Same-mode native claude call, got %#v", rc)
	}
}

func TestResolveCallShapeNonToStreamFallback(t *testing.T) {
	// Provider only implements GenerateContent (non-stream), never StreamGenerateContent.
	table := NewTable(protocol.DialectClaude, []protocol.Operation{protocol.GenerateContent})

	rc := ResolveCallShape(table, protocol.DialectOpenAI, protocol.StreamGenerateContent)
	if rc == nil {
		t.Fatal("expected a resolved call via fallback")
	}
	if rc.Mode != NonToStream {
		t.Fatalf("expected NonToStream, got %v", rc.Mode)
	}
	if rc.ProviderOp != protocol.GenerateContent {
		t.Fatalf("expected provider op GenerateContent, got %v", rc.ProviderOp)
	}
}

func TestResolveCallShapeStreamToNonFallback(t *testing.T) {
	table := NewTable(protocol.DialectGemini, []protocol.Operation{protocol.StreamGenerateContent})

	rc := ResolveCallShape(table, protocol.DialectClaude, protocol.GenerateContent)
	if rc == nil || rc.Mode != StreamToNon || rc.ProviderOp != protocol.StreamGenerateContent {
		t.Fatalf("expected StreamToNon fallback, got %#v", rc)
	}
}

func TestResolveCallShapeUnsupported(t *testing.T) {
	table := NewTable(protocol.DialectClaude, []protocol.Operation{protocol.ListModels})
	rc := ResolveCallShape(table, protocol.DialectOpenAI, protocol.GenerateContent)
	if rc != nil {
		t.Fatalf("expected nil (unsupported), got %#v", rc)
	}
}

func TestResolveCallShapeNonGenerateIsAlwaysSame(t *testing.T) {
	table := NewTable(protocol.DialectOpenAI, []protocol.Operation{protocol.ListModels})
	rc := ResolveCallShape(table, protocol.DialectClaude, protocol.ListModels)
	if rc == nil || rc.Mode != Same {
		t.Fatalf("non-generate ops must resolve Same, got %#v", rc)
	}
	if rc.ProviderProto != protocol.DialectOpenAI {
		t.Fatalf("expected transform target openai, got %v", rc.ProviderProto)
	}
}

// exhaustive: for every (proto, op) pair the resolver must terminate and
// return either a ResolvedCall or nil, never panic.
func TestResolveCallShapeTotality(t *testing.T) {
	table := NewTable(protocol.DialectGemini, []protocol.Operation{
		protocol.GenerateContent, protocol.CountTokens, protocol.ListModels, protocol.GetModel,
	})
	dialects := []protocol.Dialect{protocol.DialectClaude, protocol.DialectGemini, protocol.DialectOpenAI}
	ops := []protocol.Operation{
		protocol.GenerateContent, protocol.StreamGenerateContent, protocol.CountTokens,
		protocol.ListModels, protocol.GetModel,
	}
	for _, d := range dialects {
		for _, op := range ops {
			_ = ResolveCallShape(table, d, op)
		}
	}
}
