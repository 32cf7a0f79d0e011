package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/llm-gateway/internal/credential"
	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
	"github.com/nulpointcorp/llm-gateway/internal/stream"
	"github.com/nulpointcorp/llm-gateway/internal/traffic"
	"github.com/nulpointcorp/llm-gateway/internal/transform"
	"github.com/nulpointcorp/llm-gateway/internal/upstream"
)

// DispatchGateway serves the catch-all /{provider}/{*path} route: it parses
// the downstream dialect and operation off the request, resolves the call
// shape against the provider's dispatch table, selects a credential, and
// invokes the provider — translating and folding/synthesizing streams as
// the resolved mode requires.
type DispatchGateway struct {
	registry *upstream.Registry
	pool     *credential.Pool
	traffic  *traffic.Recorder
	log      *slog.Logger

	maxAttempts int
}

func NewDispatchGateway(registry *upstream.Registry, pool *credential.Pool, rec *traffic.Recorder, log *slog.Logger) *DispatchGateway {
	if log == nil {
		log = slog.Default()
	}
	return &DispatchGateway{registry: registry, pool: pool, traffic: rec, log: log, maxAttempts: 3}
}

// Handle implements fasthttp.RequestHandler for the catch-all provider route.
// The router supplies the {provider} path parameter; this package assumes
// the caller has already resolved {dialect, operation, model} from the
// sub-path using the provider's own URL conventions (see routing_dispatch.go).
func (g *DispatchGateway) Handle(ctx *fasthttp.RequestCtx, providerName string, userDialect protocol.Dialect, op protocol.Operation, model string) {
	traceID := uuid.NewString()
	started := time.Now()

	prov, ok := g.registry.Get(providerName)
	if !ok {
		g.writeUnavailable(ctx, "unknown provider "+providerName)
		return
	}

	resolved := dispatch.ResolveCallShape(prov.DispatchTable(), userDialect, op)
	if resolved == nil {
		g.writeUnavailable(ctx, "operation not supported by provider")
		return
	}

	body := ctx.PostBody()

	var status int
	var respBody []byte
	var err error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		cred, ok := g.pool.Select(providerName, model)
		if !ok {
			g.writeUnavailable(ctx, "no eligible credential")
			return
		}

		status, respBody, err = g.attempt(prov, resolved, userDialect, op, model, body, traceID, attempt)
		if err == nil {
			break
		}

		reason := classifyFailure(status)
		if reason == credential.ReasonUnknown {
			break // non-retryable client error
		}
		g.pool.MarkUnavailable(cred.ID, cooldownFor(reason), reason)

		if g.traffic != nil {
			g.traffic.RecordUpstream(traffic.UpstreamEvent{
				TraceID: traceID, Provider: providerName, CredentialID: cred.ID,
				AttemptNo: attempt, Model: model, RespStatus: status, CreatedAt: time.Now(),
			})
		}
	}

	if err != nil {
		g.writeUnavailable(ctx, err.Error())
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(respBody)

	if g.traffic != nil {
		g.traffic.RecordDownstream(traffic.DownstreamEvent{
			TraceID: traceID, Provider: providerName, Operation: op, Model: model,
			Method: string(ctx.Method()), Path: string(ctx.Path()),
			RespStatus: status, IsStream: op == protocol.StreamGenerateContent,
			CreatedAt: started,
		})
	}
}

func (g *DispatchGateway) attempt(
	prov upstream.Provider,
	resolved *dispatch.ResolvedCall,
	userDialect protocol.Dialect,
	userOp protocol.Operation,
	model string,
	body []byte,
	traceID string,
	attemptNo int,
) (int, []byte, error) {
	uctx := upstream.UpstreamContext{TraceID: traceID}

	providerBody := body
	if resolved.ProviderProto != userDialect {
		translated, err := translateRequestBody(userDialect, resolved.ProviderProto, userOp, body)
		if err != nil {
			return 0, nil, err
		}
		providerBody = translated
	}

	req := upstream.ProxyRequest{
		Dialect:   resolved.ProviderProto,
		Operation: resolved.ProviderOp,
		Model:     model,
		Body:      providerBody,
	}
	return g.invoke(prov, resolved, userDialect, req, uctx)
}

func (g *DispatchGateway) invoke(
	prov upstream.Provider,
	resolved *dispatch.ResolvedCall,
	userDialect protocol.Dialect,
	req upstream.ProxyRequest,
	uctx upstream.UpstreamContext,
) (int, []byte, error) {
	resp, _, err := prov.CallNative(req, uctx)
	if err != nil {
		if pe, ok := err.(*upstream.PassthroughError); ok {
			return pe.Status, pe.Body, err
		}
		return 502, nil, err
	}

	switch resolved.Mode {
	case dispatch.StreamToNon:
		return g.aggregateToNonStream(resp, resolved.ProviderProto, userDialect)
	case dispatch.NonToStream:
		return g.synthesizeToStream(resp, resolved.ProviderProto, userDialect)
	default:
		// Same mode: the provider answered in resolved.ProviderProto, which
		// is only guaranteed equal to userDialect for a Native table entry —
		// a Transform entry also resolves to Mode: Same but speaks a
		// different dialect (dispatch.ruleToProto), so the body still needs
		// translating whenever the two differ.
		if resolved.ProviderProto == userDialect {
			return resp.Status, resp.Body, nil
		}
		body, err := translateResponseBody(resolved.ProviderProto, userDialect, resolved.ProviderOp, resp.Body)
		if err != nil {
			return resp.Status, nil, err
		}
		return resp.Status, body, nil
	}
}

// translateRequestBody re-shapes a downstream request body from the caller's
// dialect into the dialect the resolved provider actually speaks.
func translateRequestBody(userDialect, providerDialect protocol.Dialect, op protocol.Operation, body []byte) ([]byte, error) {
	switch op {
	case protocol.CountTokens:
		nir, err := transform.CountTokensRequestToNIR(userDialect, body)
		if err != nil {
			return nil, err
		}
		return transform.CountTokensRequestFromNIR(providerDialect, nir)
	case protocol.ListModels, protocol.GetModel:
		// Neither operation carries a translatable JSON request body — the
		// model id (for GetModel) travels via ProxyRequest.Model, not body.
		return body, nil
	default:
		nir, err := transform.GenerateRequestToNIR(userDialect, body)
		if err != nil {
			return nil, err
		}
		return transform.GenerateRequestFromNIR(providerDialect, nir)
	}
}

// translateResponseBody re-shapes a non-stream provider response body from
// providerDialect into userDialect, dispatching on the operation that was
// actually served (mirrors translateRequestBody's op-based routing).
func translateResponseBody(providerDialect, userDialect protocol.Dialect, op protocol.Operation, body []byte) ([]byte, error) {
	switch op {
	case protocol.CountTokens:
		nir, err := transform.CountTokensResponseToNIR(providerDialect, body)
		if err != nil {
			return nil, err
		}
		return transform.CountTokensResponseFromNIR(userDialect, nir)
	case protocol.ListModels:
		nir, err := transform.ListModelsResponseToNIR(providerDialect, body)
		if err != nil {
			return nil, err
		}
		return transform.ListModelsResponseFromNIR(userDialect, nir)
	case protocol.GetModel:
		nir, err := transform.GetModelResponseToNIR(providerDialect, body)
		if err != nil {
			return nil, err
		}
		return transform.GetModelResponseFromNIR(userDialect, nir)
	default:
		nir, err := transform.GenerateResponseToNIR(providerDialect, body)
		if err != nil {
			return nil, err
		}
		return transform.GenerateResponseFromNIR(userDialect, nir)
	}
}

// aggregateToNonStream folds a provider stream, framed in providerDialect,
// into a single response shaped for the caller's userDialect.
func (g *DispatchGateway) aggregateToNonStream(resp upstream.ProxyResponse, providerDialect, userDialect protocol.Dialect) (int, []byte, error) {
	raw, err := io.ReadAll(resp.Stream)
	if err != nil {
		return 0, nil, err
	}
	events := parseSSEBytes(raw)
	codec := stream.CodecFor(providerDialect)
	nir, err := stream.Aggregate(codec, "", events)
	if err != nil {
		return resp.Status, nil, err
	}
	body, err := transform.GenerateResponseFromNIR(userDialect, nir)
	if err != nil {
		return 0, nil, err
	}
	return resp.Status, body, nil
}

// synthesizeToStream turns a single provider response, shaped in
// providerDialect, into an SSE stream framed for the caller's userDialect.
func (g *DispatchGateway) synthesizeToStream(resp upstream.ProxyResponse, providerDialect, userDialect protocol.Dialect) (int, []byte, error) {
	nir, err := transform.GenerateResponseToNIR(providerDialect, resp.Body)
	if err != nil {
		return 0, nil, err
	}
	codec := stream.CodecFor(userDialect)
	events := stream.Synthesize(codec, nir)
	var out []byte
	for _, ev := range events {
		out = append(out, []byte(protocol.EncodeSSE(ev))...)
	}
	return resp.Status, out, nil
}

func (g *DispatchGateway) writeUnavailable(ctx *fasthttp.RequestCtx, reason string) {
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": reason})
	ctx.SetBody(body)
}

func classifyFailure(status int) credential.UnavailableReason {
	switch {
	case status == 429:
		return credential.ReasonRateLimit
	case status == 401 || status == 403:
		return credential.ReasonAuthInvalid
	case status >= 500:
		return credential.ReasonUpstream5xx
	default:
		return credential.ReasonUnknown
	}
}

func cooldownFor(reason credential.UnavailableReason) time.Duration {
	switch reason {
	case credential.ReasonRateLimit:
		return 30 * time.Second
	case credential.ReasonUpstream5xx:
		return 15 * time.Second
	case credential.ReasonAuthInvalid:
		return 10 * time.Minute
	default:
		return 5 * time.Second
	}
}

func parseSSEBytes(raw []byte) []protocol.SSEEvent {
	p := protocol.NewSSEParser()
	events := p.PushString(string(raw))
	events = append(events, p.Finish()...)
	return events
}
