package upstream

import (
	"testing"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string                  { return s.name }
func (s stubProvider) Dialect() protocol.Dialect      { return protocol.DialectClaude }
func (s stubProvider) DispatchTable() dispatch.Table  { return dispatch.Table{} }
func (s stubProvider) CallNative(ProxyRequest, UpstreamContext) (ProxyResponse, UpstreamRecordMeta, error) {
	return ProxyResponse{Status: 200}, UpstreamRecordMeta{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(stubProvider{name: "alpha"})

	p, ok := r.Get("alpha")
	if !ok || p.Name() != "alpha" {
		t.Fatalf("expected to find provider alpha, got %#v ok=%v", p, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected missing provider to not be found")
	}
}

func TestMustGetPanicsOnMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unregistered provider")
		}
	}()
	NewRegistry().MustGet("nope")
}

func TestDownstreamContextNarrowsToUpstream(t *testing.T) {
	dc := DownstreamContext{
		TraceID:        "trace-1",
		UserID:         "user-1",
		KeyID:          "key-1",
		DownstreamMeta: &DownstreamRecordMeta{ProviderID: 42},
	}
	uc := dc.Upstream()

	if uc.TraceID != "trace-1" {
		t.Fatalf("expected trace id to carry over, got %q", uc.TraceID)
	}
	if uc.ProviderID != 42 {
		t.Fatalf("expected provider id to carry over, got %d", uc.ProviderID)
	}
}

func TestDownstreamContextNarrowsWithoutMeta(t *testing.T) {
	dc := DownstreamContext{TraceID: "trace-2"}
	uc := dc.Upstream()
	if uc.ProviderID != 0 {
		t.Fatalf("expected zero provider id without meta, got %d", uc.ProviderID)
	}
}
