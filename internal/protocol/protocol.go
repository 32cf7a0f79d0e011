// Package protocol defines the wire-dialect-independent vocabulary the
// dispatch engine and transform library operate on: the three downstream
// dialects a request can arrive in, the operations each dialect exposes, and
// a neutral intermediate representation (NIR) that every dialect's wire
// format is translated to and from.
package protocol

import "strings"

// Dialect identifies one of the three downstream wire formats the gateway
// accepts. Each mirrors a real, widely deployed provider API shape.
type Dialect int

const (
	// DialectClaude mirrors an Anthropic-style Messages API: POST
	// /v1/messages, x-api-key auth, content-block responses.
	DialectClaude Dialect = iota
	// DialectGemini mirrors a Google Generative Language API: POST
	// /v1beta/models/{model}:generateContent, "models/"-prefixed ids,
	// candidates[].content.parts[] responses.
	DialectGemini
	// DialectOpenAI mirrors an OpenAI-style Chat Completions API: POST
	// /v1/chat/completions, bearer auth, choices[].message responses.
	DialectOpenAI
)

func (d Dialect) String() string {
	switch d {
	case DialectClaude:
		return "claude"
	case DialectGemini:
		return "gemini"
	case DialectOpenAI:
		return "openai"
	default:
		return "unknown"
	}
}

// Operation enumerates the request kinds the dispatch engine resolves.
// GenerateContent/StreamGenerateContent are the only operations with a
// stream-shape fallback; all others resolve 1:1.
type Operation int

const (
	GenerateContent Operation = iota
	StreamGenerateContent
	CountTokens
	ListModels
	GetModel
	UsagePassthrough
	OAuthStart
	OAuthCallback
	ResponsesPassthrough
)

func (op Operation) String() string {
	switch op {
	case GenerateContent:
		return "generate_content"
	case StreamGenerateContent:
		return "stream_generate_content"
	case CountTokens:
		return "count_tokens"
	case ListModels:
		return "list_models"
	case GetModel:
		return "get_model"
	case UsagePassthrough:
		return "usage"
	case OAuthStart:
		return "oauth_start"
	case OAuthCallback:
		return "oauth_callback"
	case ResponsesPassthrough:
		return "responses_passthrough"
	default:
		return "unknown"
	}
}

// IsGenerate reports whether op is one of the two shapes of the generate
// operation — the only family the dispatch resolver may fall back between.
func (op Operation) IsGenerate() bool {
	return op == GenerateContent || op == StreamGenerateContent
}

// Headers is a case-insensitive ordered header bag. Original case is
// preserved for emission; lookups and mutations are case-insensitive.
type Headers []HeaderField

type HeaderField struct {
	Name  string
	Value string
}

// Get returns the first value for name (case-insensitive), or "" if absent.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Set replaces (or appends) the value for name, case-insensitively.
func (h Headers) Set(name, value string) Headers {
	for i, f := range h {
		if strings.EqualFold(f.Name, name) {
			h[i].Value = value
			return h
		}
	}
	return append(h, HeaderField{Name: name, Value: value})
}

// Remove deletes all entries matching name, case-insensitively.
func (h Headers) Remove(name string) Headers {
	out := h[:0]
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}

// ── Neutral intermediate representation ─────────────────────────────────────
//
// Every dialect's wire request/response is translated to/from these types by
// the transform package. Using a hub-and-spoke NIR instead of a full pairwise
// matrix of dialect-to-dialect functions avoids an O(n^2) blowup of near
// duplicate translators — each dialect needs only one ToNIR and one FromNIR
// per operation family (see DESIGN.md).

type Role int

const (
	RoleUser Role = iota
	RoleAssistant
	RoleSystem
)

type ContentBlock struct {
	Type string // "text", "tool_use", "tool_result"
	Text string

	// Tool-use fields, populated only when Type == "tool_use".
	ToolID    string
	ToolName  string
	ToolInput string // raw JSON object, e.g. `{"location":"NYC"}`
}

type Message struct {
	Role    Role
	Content []ContentBlock
}

type Usage struct {
	InputTokens       uint32
	OutputTokens      uint32
	CachedInputTokens uint32
	ReasoningTokens   uint32
}

// GenerateRequest is the neutral shape of a chat/message generation call.
type GenerateRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// GenerateResponse is the neutral shape of a (possibly aggregated) generation
// result — a single turn of assistant output plus usage.
type GenerateResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      Usage
}

// GenerateDelta is one incremental update during streaming generation. The
// state machine a stream walks is Init -> (Chunk|ToolStart|ToolArg|Usage)* ->
// End (SPEC_FULL.md §4.3): TextDelta carries a Chunk, ToolCall carries a
// ToolStart (ID/Name set) or a ToolArg (only ArgsDelta set), Usage/StopReason
// carry Usage/End.
type GenerateDelta struct {
	TextDelta  string
	ToolCall   *ToolCallDelta
	StopReason string // set only on the final delta
	Usage      *Usage // set only when the dialect reports usage in-band
}

// ToolCallDelta is one incremental update to a tool call a model is
// emitting. Index identifies which tool call this delta belongs to when a
// dialect can stream more than one concurrently (OpenAI); dialects that
// can't (Gemini emits a function call whole) just use 0.
type ToolCallDelta struct {
	Index     int
	ID        string // set on the delta that starts the tool call
	Name      string // set on the delta that starts the tool call
	ArgsDelta string // incremental (or, for Gemini, complete) JSON fragment
}

type CountTokensRequest struct {
	Model    string
	System   string
	Messages []Message
}

type CountTokensResponse struct {
	InputTokens uint32
}

type ModelInfo struct {
	ID        string
	OwnedBy   string
	CreatedAt int64 // unix seconds; 0 when unknown
	Version   string
}

type ListModelsResponse struct {
	Models []ModelInfo
}

type GetModelRequest struct {
	ModelID string
}

type GetModelResponse struct {
	Model ModelInfo
}

// ClampTokens widens a possibly-negative or oversized counter into the
// uint32 range every NIR usage field uses, per the clamp invariant in
// SPEC_FULL.md §8.
func ClampTokens(n int64) uint32 {
	if n < 0 {
		return 0
	}
	if n > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

// StripModelsPrefix removes a leading "models/" (Gemini-style id) if present.
func StripModelsPrefix(id string) string {
	return strings.TrimPrefix(id, "models/")
}

// AddModelsPrefix adds a leading "models/" if not already present.
func AddModelsPrefix(id string) string {
	if strings.HasPrefix(id, "models/") {
		return id
	}
	return "models/" + id
}
