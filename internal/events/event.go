// Package events implements the operational event hub: a broadcast fan-out
// point for credential lifecycle changes and traffic observations, with
// async, best-effort delivery to durable sinks.
package events

import (
	"time"

	"github.com/nulpointcorp/llm-gateway/internal/credential"
)

// Kind discriminates the Event union for JSON serialization and switch
// dispatch — Go has no sum types, so the event carries its own tag plus
// exactly one populated payload field.
type Kind string

const (
	KindUnavailableStart      Kind = "unavailable_start"
	KindUnavailableEnd        Kind = "unavailable_end"
	KindModelUnavailableStart Kind = "model_unavailable_start"
	KindModelUnavailableEnd   Kind = "model_unavailable_end"
	KindDownstream            Kind = "downstream"
	KindUpstream              Kind = "upstream"
)

// UnavailableStart fires when a credential transitions to Unavailable.
type UnavailableStart struct {
	CredentialID int64                       `json:"credential_id"`
	Reason       credential.UnavailableReason `json:"reason"`
	Until        time.Time                   `json:"until"`
	At           time.Time                   `json:"at"`
}

// UnavailableEnd fires when a credential recovers to Active.
type UnavailableEnd struct {
	CredentialID int64     `json:"credential_id"`
	At           time.Time `json:"at"`
}

// ModelUnavailableStart fires when a (credential, model) scope is disallowed.
type ModelUnavailableStart struct {
	CredentialID int64                       `json:"credential_id"`
	Model        string                      `json:"model"`
	Reason       credential.UnavailableReason `json:"reason"`
	Until        time.Time                   `json:"until"`
	At           time.Time                   `json:"at"`
}

// ModelUnavailableEnd fires when a (credential, model) disallow clears.
type ModelUnavailableEnd struct {
	CredentialID int64     `json:"credential_id"`
	Model        string    `json:"model"`
	At           time.Time `json:"at"`
}

// Downstream carries a summary of one completed client-facing request.
type Downstream struct {
	TraceID    string    `json:"trace_id"`
	Provider   string    `json:"provider"`
	Operation  string    `json:"operation"`
	Model      string    `json:"model,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	RespStatus int       `json:"resp_status"`
	IsStream   bool      `json:"is_stream"`
	CreatedAt  time.Time `json:"created_at"`
}

// Upstream carries a summary of one attempt made against a provider.
type Upstream struct {
	TraceID      string    `json:"trace_id"`
	Provider     string    `json:"provider"`
	CredentialID int64     `json:"credential_id"`
	AttemptNo    int       `json:"attempt_no"`
	Model        string    `json:"model,omitempty"`
	InputTokens  uint32    `json:"input_tokens"`
	OutputTokens uint32    `json:"output_tokens"`
	RespStatus   int       `json:"resp_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is the JSON-serializable envelope delivered to subscribers and sinks.
type Event struct {
	Kind Kind `json:"kind"`

	UnavailableStart      *UnavailableStart      `json:"unavailable_start,omitempty"`
	UnavailableEnd        *UnavailableEnd        `json:"unavailable_end,omitempty"`
	ModelUnavailableStart *ModelUnavailableStart `json:"model_unavailable_start,omitempty"`
	ModelUnavailableEnd   *ModelUnavailableEnd   `json:"model_unavailable_end,omitempty"`
	Downstream            *Downstream            `json:"downstream,omitempty"`
	Upstream               *Upstream              `json:"upstream,omitempty"`
}
