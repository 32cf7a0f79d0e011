// Package upstream defines the Provider contract: the interface every
// concrete provider adapter implements, and the downstream/upstream request
// contexts threaded through a dispatched call.
package upstream

import (
	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/traffic"
)

// DownstreamRecordMeta carries the fields needed to build a traffic.DownstreamEvent
// once the response is known.
type DownstreamRecordMeta struct {
	ProviderID int64
	Method     string
	Path       string
	Query      string
}

// DownstreamContext is everything a dispatched call needs that originates
// from the client-facing request: identity, tracing, and the traffic sink
// to record against. UpstreamContext narrows this to the fields a Provider
// adapter is allowed to see.
type DownstreamContext struct {
	TraceID       string
	UserID        string
	KeyID         string
	Proxy         string
	UserAgent     string
	TrafficSink   *traffic.Recorder
	DownstreamMeta *DownstreamRecordMeta
}

// Upstream narrows a DownstreamContext to the fields visible to a Provider
// adapter — providers never see the requesting user's identity or key id.
func (c DownstreamContext) Upstream() UpstreamContext {
	var providerID int64
	if c.DownstreamMeta != nil {
		providerID = c.DownstreamMeta.ProviderID
	}
	return UpstreamContext{
		TraceID:     c.TraceID,
		ProviderID:  providerID,
		Proxy:       c.Proxy,
		TrafficSink: c.TrafficSink,
		UserAgent:   c.UserAgent,
	}
}

// UpstreamContext is the narrowed context a Provider adapter receives when
// making the actual call to a backend.
type UpstreamContext struct {
	TraceID     string
	ProviderID  int64
	Proxy       string
	TrafficSink *traffic.Recorder
	UserAgent   string
}

// PassthroughError carries a verbatim upstream failure (status, headers,
// body) to be forwarded downstream after translation back to the user's
// dialect.
type PassthroughError struct {
	Status  int
	Headers map[string]string
	Body    []byte
	Message string
}

func (e *PassthroughError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "upstream passthrough error"
}

// ServiceUnavailable constructs a 503 PassthroughError, the shape dispatch
// resolution failures and transform parse failures both surface as.
func ServiceUnavailable(reason string) *PassthroughError {
	return &PassthroughError{Status: 503, Message: reason}
}

// UsageKind tags how a ResolvedCall's response usage is derived: read
// straight off the response or from the stream's accumulator.
type UsageKind int

const (
	UsageFromResponse UsageKind = iota
	UsageFromStreamAccumulator
)

// CallPlan is what a Provider's dispatch table resolves a ProxyRequest to:
// the resolved call shape plus how to account for usage afterward.
type CallPlan struct {
	Resolved *dispatch.ResolvedCall
	Usage    UsageKind
}
