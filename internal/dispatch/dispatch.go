// Package dispatch resolves a downstream request's protocol and operation to
// the upstream provider call that serves it, including the stream-shape
// fallbacks a generate request may need when the provider only implements
// the other shape.
package dispatch

import "github.com/nulpointcorp/llm-gateway/internal/protocol"

// Rule is the outcome of consulting a DispatchTable for one TransformContext.
type Rule int

const (
	// Unsupported means the provider cannot serve this (src,dst,op) shape at all.
	Unsupported Rule = iota
	// Native means no translation is needed; the provider speaks src_proto natively.
	Native
	// Transform means the provider speaks Target natively and src must be
	// translated to/from it.
	Transform
)

// TransformContext is the key a DispatchTable is consulted with.
type TransformContext struct {
	SrcProto protocol.Dialect
	DstProto protocol.Dialect
	SrcOp    protocol.Operation
	DstOp    protocol.Operation
}

// Entry is one row of a DispatchTable: the rule for a context, and — when
// the rule is Transform — the dialect the provider natively speaks.
type Entry struct {
	Rule   Rule
	Target protocol.Dialect
}

// Table maps a TransformContext to its dispatch Entry. It is built once at
// provider registration and never mutated afterward, so lookups never need a
// lock (SPEC_FULL.md §5).
type Table map[TransformContext]Entry

// NewTable builds a Table for a provider whose native dialect is native.
// supportedOps lists the operations the provider implements in its native
// dialect; for each of them the native dialect gets a Native entry and every
// other dialect a Transform entry targeting native.
func NewTable(native protocol.Dialect, supportedOps []protocol.Operation) Table {
	t := make(Table)
	dialects := []protocol.Dialect{protocol.DialectClaude, protocol.DialectGemini, protocol.DialectOpenAI}
	for _, op := range supportedOps {
		for _, src := range dialects {
			ctx := TransformContext{SrcProto: src, DstProto: native, SrcOp: op, DstOp: op}
			if src == native {
				t[ctx] = Entry{Rule: Native}
			} else {
				t[ctx] = Entry{Rule: Transform, Target: native}
			}
		}
	}
	return t
}

// GenerateMode describes how a resolved generate call's shape relates to
// what the downstream caller asked for.
type GenerateMode int

const (
	// Same means the provider is called with the operation the user requested.
	Same GenerateMode = iota
	// StreamToNon means the user asked for a non-stream response but the
	// provider is only called via StreamGenerateContent; the stream engine
	// must aggregate the upstream SSE into a single response.
	StreamToNon
	// NonToStream means the user asked for a stream but the provider is only
	// called via GenerateContent; the stream engine must synthesize SSE from
	// the single upstream response.
	NonToStream
)

func (m GenerateMode) String() string {
	switch m {
	case Same:
		return "same"
	case StreamToNon:
		return "stream_to_non"
	case NonToStream:
		return "non_to_stream"
	default:
		return "unknown"
	}
}

// ResolvedCall is the dispatch engine's decision for a downstream request:
// which provider-native (protocol, operation) to invoke and what stream-shape
// adaptation the stream engine must perform, if any.
type ResolvedCall struct {
	ProviderProto protocol.Dialect
	ProviderOp    protocol.Operation
	Mode          GenerateMode
}

// ResolveCallShape implements the resolution algorithm from SPEC_FULL.md §4.1.
//
// For non-generate operations the table is consulted once with the identity
// (op,op) context and the result is Same. For generate operations, the
// same-shape call is tried first; if unavailable, the opposite shape is
// tried as a fallback, and the caller is told which stream adaptation to
// perform.
func ResolveCallShape(table Table, userProto protocol.Dialect, userOp protocol.Operation) *ResolvedCall {
	if !userOp.IsGenerate() {
		if proto, ok := ruleToProto(table, userProto, userOp); ok {
			return &ResolvedCall{ProviderProto: proto, ProviderOp: userOp, Mode: Same}
		}
		return nil
	}

	if proto, ok := ruleToProto(table, userProto, userOp); ok {
		return &ResolvedCall{ProviderProto: proto, ProviderOp: userOp, Mode: Same}
	}

	if userOp == protocol.StreamGenerateContent {
		if proto, ok := ruleToProto(table, userProto, protocol.GenerateContent); ok {
			return &ResolvedCall{ProviderProto: proto, ProviderOp: protocol.GenerateContent, Mode: NonToStream}
		}
		return nil
	}

	if proto, ok := ruleToProto(table, userProto, protocol.StreamGenerateContent); ok {
		return &ResolvedCall{ProviderProto: proto, ProviderOp: protocol.StreamGenerateContent, Mode: StreamToNon}
	}
	return nil
}

// ruleToProto looks up the entry for (srcProto, op) — a provider's table
// only ever targets its own single native dialect, so the DstProto/DstOp
// fields of the stored TransformContext key are fully determined by op and
// need not be supplied by the caller.
func ruleToProto(table Table, srcProto protocol.Dialect, op protocol.Operation) (protocol.Dialect, bool) {
	for key, entry := range table {
		if key.SrcProto != srcProto || key.SrcOp != op || key.DstOp != op {
			continue
		}
		if entry.Rule == Unsupported {
			return 0, false
		}
		if entry.Rule == Native {
			return key.DstProto, true
		}
		return entry.Target, true
	}
	return 0, false
}
