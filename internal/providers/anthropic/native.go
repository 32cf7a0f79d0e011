package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
	"github.com/nulpointcorp/llm-gateway/internal/transform"
	"github.com/nulpointcorp/llm-gateway/internal/upstream"
)

// NativeAdapter exposes Provider as an upstream.Provider: dialect-A
// (Claude-shaped) requests and responses travel in and out as raw JSON,
// parsed and serialized through the transform package, so the dispatch
// engine never needs to know about the Anthropic SDK's own types.
type NativeAdapter struct {
	*Provider
	credID int64
}

func NewNativeAdapter(p *Provider, credentialID int64) *NativeAdapter {
	return &NativeAdapter{Provider: p, credID: credentialID}
}

func (a *NativeAdapter) Dialect() protocol.Dialect { return protocol.DialectClaude }

func (a *NativeAdapter) DispatchTable() dispatch.Table {
	return dispatch.NewTable(protocol.DialectClaude, []protocol.Operation{
		protocol.GenerateContent,
		protocol.StreamGenerateContent,
		protocol.CountTokens,
		protocol.ListModels,
		protocol.GetModel,
	})
}

func (a *NativeAdapter) CallNative(req upstream.ProxyRequest, ctx upstream.UpstreamContext) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	switch req.Operation {
	case protocol.GenerateContent:
		return a.callGenerate(req)
	case protocol.StreamGenerateContent:
		return a.callGenerateStream(req)
	case protocol.CountTokens:
		return a.callCountTokens(req)
	case protocol.ListModels:
		return a.callListModels(req)
	case protocol.GetModel:
		return a.callGetModel(req)
	default:
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, upstream.ServiceUnavailable(
			fmt.Sprintf("anthropic: native call for %s not implemented", req.Operation))
	}
}

func (a *NativeAdapter) callGenerate(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.GenerateRequestToNIR(protocol.DialectClaude, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	params := a.buildGenerateParams(nir)
	msg, err := a.client.Messages.New(context.Background(), params)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.GenerateResponse{
		ID:    msg.ID,
		Model: string(msg.Model),
		Usage: protocol.Usage{
			InputTokens:  protocol.ClampTokens(msg.Usage.InputTokens),
			OutputTokens: protocol.ClampTokens(msg.Usage.OutputTokens),
		},
	}
	for _, b := range msg.Content {
		if tb, ok := b.AsAny().(anthropic.TextBlock); ok {
			out.Content = append(out.Content, protocol.ContentBlock{Type: "text", Text: tb.Text})
		}
	}

	body, err := transform.GenerateResponseFromNIR(protocol.DialectClaude, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID, Usage: out.Usage, HasUsage: true},
		nil
}

func (a *NativeAdapter) callGenerateStream(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.GenerateRequestToNIR(protocol.DialectClaude, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	params := a.buildGenerateParams(nir)
	stream := a.client.Messages.NewStreaming(context.Background(), params)

	pr, pw := pipe()
	go func() {
		var closeErr error
		defer func() { pw.CloseWithError(closeErr) }()

		for stream.Next() {
			ev := stream.Current()
			sseEv, ok := encodeClaudeStreamEvent(ev)
			if !ok {
				continue
			}
			if _, err := pw.Write([]byte(protocol.EncodeSSE(sseEv))); err != nil {
				closeErr = err
				return
			}
		}
		closeErr = stream.Err()
	}()

	return upstream.ProxyResponse{Status: 200, Stream: pr, IsStream: true, ContentType: "text/event-stream"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callCountTokens(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.CountTokensRequestToNIR(protocol.DialectClaude, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	// The official SDK's token-counting endpoint mirrors Messages.New's
	// params; approximate input length when unavailable isn't attempted
	// here — a parse failure from the count-tokens endpoint itself is
	// surfaced as a passthrough error rather than estimated locally.
	params := anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(nir.Model),
		Messages: toSDKMessages(nir.Messages),
	}
	if nir.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: nir.System}}
	}

	resp, err := a.client.Messages.CountTokens(context.Background(), params)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.CountTokensResponse{InputTokens: protocol.ClampTokens(resp.InputTokens)}
	body, err := transform.CountTokensResponseFromNIR(protocol.DialectClaude, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callListModels(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	page, err := a.client.Models.List(context.Background(), anthropic.ModelListParams{})
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.ListModelsResponse{Models: make([]protocol.ModelInfo, 0, len(page.Data))}
	for _, m := range page.Data {
		out.Models = append(out.Models, protocol.ModelInfo{
			ID:        m.ID,
			OwnedBy:   "anthropic",
			CreatedAt: m.CreatedAt.Unix(),
			Version:   m.DisplayName,
		})
	}

	body, err := transform.ListModelsResponseFromNIR(protocol.DialectClaude, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callGetModel(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	m, err := a.client.Models.Get(context.Background(), req.Model, anthropic.ModelGetParams{})
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.ModelInfo{ID: m.ID, OwnedBy: "anthropic", CreatedAt: m.CreatedAt.Unix(), Version: m.DisplayName}
	body, err := transform.GetModelResponseFromNIR(protocol.DialectClaude, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) buildGenerateParams(nir protocol.GenerateRequest) anthropic.MessageNewParams {
	maxTokens := nir.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(nir.Model),
		MaxTokens: int64(maxTokens),
		Messages:  toSDKMessages(nir.Messages),
	}
	if nir.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: nir.System}}
	}
	if nir.Temperature > 0 {
		params.Temperature = anthropic.Float(nir.Temperature)
	}
	return params
}

func toSDKMessages(msgs []protocol.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		if m.Role == protocol.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range m.Content {
			blocks = append(blocks, anthropic.ContentBlockParamUnion{OfText: &anthropic.TextBlockParam{Text: b.Text}})
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}
