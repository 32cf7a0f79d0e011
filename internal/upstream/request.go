package upstream

import (
	"io"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

// ProxyRequest is the tagged downstream request a Provider dispatches:
// a (dialect, operation) pair plus the raw JSON body and headers the
// transform library parses per-dialect. Query carries the raw query string
// (used by model-get routes and OAuth passthrough).
type ProxyRequest struct {
	Dialect   protocol.Dialect
	Operation protocol.Operation
	Model     string
	Headers   protocol.Headers
	Body      []byte
	Query     string
}

// ProxyResponse is what a Provider call (native or transformed) returns to
// the dispatch layer: a status, header bag, and body — either fully
// buffered or a streamed byte reader tagged as SSE.
type ProxyResponse struct {
	Status      int
	Headers     protocol.Headers
	Body        []byte
	Stream      io.Reader
	IsStream    bool
	ContentType string
}
