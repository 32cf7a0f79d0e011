package upstream

import (
	"fmt"
	"sync"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

// UpstreamRecordMeta is what a native call reports back about itself for
// traffic recording and credential bookkeeping: which credential served it,
// which attempt this was, and the usage counters if known up front.
type UpstreamRecordMeta struct {
	CredentialID int64
	AttemptNo    int
	Usage        protocol.Usage
	HasUsage     bool
}

// Provider is the contract every concrete backend adapter implements: its
// native dialect's dispatch table, and the single native call every
// resolved shape ultimately bottoms out in.
type Provider interface {
	Name() string
	Dialect() protocol.Dialect
	DispatchTable() dispatch.Table
	CallNative(req ProxyRequest, ctx UpstreamContext) (ProxyResponse, UpstreamRecordMeta, error)
}

// Registry looks up a registered Provider by name. Providers are registered
// once at startup; there is no dynamic (re)loading.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) MustGet(name string) Provider {
	p, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("upstream: provider %q not registered", name))
	}
	return p
}
