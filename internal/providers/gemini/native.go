package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
	"github.com/nulpointcorp/llm-gateway/internal/transform"
	"github.com/nulpointcorp/llm-gateway/internal/upstream"
)

// NativeAdapter exposes Provider as an upstream.Provider for dialect-B
// (Gemini generateContent-shaped) requests.
type NativeAdapter struct {
	*Provider
	credID int64
}

func NewNativeAdapter(p *Provider, credentialID int64) *NativeAdapter {
	return &NativeAdapter{Provider: p, credID: credentialID}
}

func (a *NativeAdapter) Dialect() protocol.Dialect { return protocol.DialectGemini }

func (a *NativeAdapter) DispatchTable() dispatch.Table {
	return dispatch.NewTable(protocol.DialectGemini, []protocol.Operation{
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
			fmt.Sprintf("gemini: native call for %s not implemented", req.Operation))
	}
}

func (a *NativeAdapter) callGenerate(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.GenerateRequestToNIR(protocol.DialectGemini, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	contents, cfg := nirToContents(nir)
	resp, err := a.client.Models.GenerateContent(context.Background(), nir.Model, contents, cfg)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.GenerateResponse{Model: nir.Model}
	if resp != nil {
		out.ID = resp.ResponseID
		if resp.UsageMetadata != nil {
			out.Usage = protocol.Usage{
				InputTokens:  protocol.ClampTokens(int64(resp.UsageMetadata.PromptTokenCount)),
				OutputTokens: protocol.ClampTokens(int64(resp.UsageMetadata.CandidatesTokenCount)),
			}
		}
		if text := resp.Text(); text != "" {
			out.Content = []protocol.ContentBlock{{Type: "text", Text: text}}
		}
	}

	body, err := transform.GenerateResponseFromNIR(protocol.DialectGemini, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID, Usage: out.Usage, HasUsage: true},
		nil
}

func (a *NativeAdapter) callGenerateStream(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.GenerateRequestToNIR(protocol.DialectGemini, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	contents, cfg := nirToContents(nir)

	pr, pw := pipe()
	go func() {
		var closeErr error
		defer func() { pw.CloseWithError(closeErr) }()

		for resp, err := range a.client.Models.GenerateContentStream(context.Background(), nir.Model, contents, cfg) {
			if err != nil {
				closeErr = err
				return
			}
			if resp == nil {
				continue
			}
			body, merr := jsonMarshal(resp)
			if merr != nil {
				continue
			}
			if _, werr := pw.Write([]byte(protocol.EncodeSSE(protocol.SSEEvent{Data: string(body)}))); werr != nil {
				closeErr = werr
				return
			}
		}
	}()

	return upstream.ProxyResponse{Status: 200, Stream: pr, IsStream: true, ContentType: "text/event-stream"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callCountTokens(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.CountTokensRequestToNIR(protocol.DialectGemini, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	contents := make([]*genai.Content, 0, len(nir.Messages))
	for _, m := range nir.Messages {
		role := genai.RoleUser
		if m.Role == protocol.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(flattenParts(m.Content), role))
	}

	resp, err := a.client.Models.CountTokens(context.Background(), nir.Model, contents, nil)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.CountTokensResponse{InputTokens: protocol.ClampTokens(int64(resp.TotalTokens))}
	body, err := transform.CountTokensResponseFromNIR(protocol.DialectGemini, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callListModels(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	pager, err := a.client.Models.List(context.Background(), &genai.ListModelsConfig{})
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	var models []protocol.ModelInfo
	for m, err := range pager.All() {
		if err != nil {
			return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
		}
		if m == nil {
			continue
		}
		models = append(models, transform.GeminiModelToNIR(transform.GeminiModel{
			Name:        m.Name,
			Version:     m.Version,
			DisplayName: m.DisplayName,
		}))
	}

	body, err := transform.ListModelsResponseFromNIR(protocol.DialectGemini, protocol.ListModelsResponse{Models: models})
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callGetModel(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	name := protocol.AddModelsPrefix(req.Model)
	m, err := a.client.Models.Get(context.Background(), name, &genai.GetModelConfig{})
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := transform.GeminiModelToNIR(transform.GeminiModel{Name: m.Name, Version: m.Version, DisplayName: m.DisplayName})
	body, err := transform.GetModelResponseFromNIR(protocol.DialectGemini, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func nirToContents(nir protocol.GenerateRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(nir.Messages))
	for _, m := range nir.Messages {
		role := genai.RoleUser
		if m.Role == protocol.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(flattenParts(m.Content), role))
	}

	var cfg *genai.GenerateContentConfig
	if nir.System != "" || nir.Temperature > 0 || nir.MaxTokens > 0 {
		cfg = &genai.GenerateContentConfig{}
	}
	if cfg != nil && nir.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: nir.System}}}
	}
	if cfg != nil && nir.Temperature > 0 {
		cfg.Temperature = genai.Ptr[float32](float32(nir.Temperature))
	}
	if cfg != nil && nir.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(nir.MaxTokens)
	}
	return contents, cfg
}

func flattenParts(blocks []protocol.ContentBlock) string {
	out := ""
	for _, b := range blocks {
		out += b.Text
	}
	return out
}
