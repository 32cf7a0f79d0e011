package openai

import (
	"context"
	"fmt"

	openaiSDK "github.com/openai/openai-go/v3"

	"github.com/nulpointcorp/llm-gateway/internal/dispatch"
	"github.com/nulpointcorp/llm-gateway/internal/protocol"
	"github.com/nulpointcorp/llm-gateway/internal/transform"
	"github.com/nulpointcorp/llm-gateway/internal/upstream"
)

// NativeAdapter exposes Provider as an upstream.Provider for dialect-C
// (OpenAI Chat Completions-shaped) requests.
type NativeAdapter struct {
	*Provider
	credID int64
}

func NewNativeAdapter(p *Provider, credentialID int64) *NativeAdapter {
	return &NativeAdapter{Provider: p, credID: credentialID}
}

func (a *NativeAdapter) Dialect() protocol.Dialect { return protocol.DialectOpenAI }

func (a *NativeAdapter) DispatchTable() dispatch.Table {
	return dispatch.NewTable(protocol.DialectOpenAI, []protocol.Operation{
		protocol.GenerateContent,
		protocol.StreamGenerateContent,
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
	case protocol.ListModels:
		return a.callListModels(req)
	case protocol.GetModel:
		return a.callGetModel(req)
	default:
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, upstream.ServiceUnavailable(
			fmt.Sprintf("openai: native call for %s not implemented", req.Operation))
	}
}

func (a *NativeAdapter) callGenerate(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.GenerateRequestToNIR(protocol.DialectOpenAI, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	params := a.buildChatParams(nir)
	resp, err := a.client.Chat.Completions.New(context.Background(), params)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := protocol.GenerateResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: protocol.Usage{
			InputTokens:  protocol.ClampTokens(resp.Usage.PromptTokens),
			OutputTokens: protocol.ClampTokens(resp.Usage.CompletionTokens),
		},
	}
	if len(resp.Choices) > 0 {
		out.Content = []protocol.ContentBlock{{Type: "text", Text: resp.Choices[0].Message.Content}}
		out.StopReason = resp.Choices[0].FinishReason
	}

	body, err := transform.GenerateResponseFromNIR(protocol.DialectOpenAI, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID, Usage: out.Usage, HasUsage: true},
		nil
}

func (a *NativeAdapter) callGenerateStream(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	nir, err := transform.GenerateRequestToNIR(protocol.DialectOpenAI, req.Body)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	params := a.buildChatParams(nir)
	stream := a.client.Chat.Completions.NewStreaming(context.Background(), params)

	pr, pw := pipe()
	go func() {
		var closeErr error
		defer func() { pw.CloseWithError(closeErr) }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			sseEv := encodeOpenAIChunk(chunk)
			if _, err := pw.Write([]byte(protocol.EncodeSSE(sseEv))); err != nil {
				closeErr = err
				return
			}
		}
		if err := stream.Err(); err == nil {
			pw.Write([]byte(protocol.EncodeSSE(protocol.SSEEvent{Data: "[DONE]"})))
		} else {
			closeErr = err
		}
	}()

	return upstream.ProxyResponse{Status: 200, Stream: pr, IsStream: true, ContentType: "text/event-stream"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callListModels(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	page, err := a.client.Models.List(context.Background())
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	models := make([]protocol.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, transform.OpenAIModelToNIR(transform.OpenAIModel{ID: m.ID, Created: m.Created, OwnedBy: m.OwnedBy}))
	}

	body, err := transform.ListModelsResponseFromNIR(protocol.DialectOpenAI, protocol.ListModelsResponse{Models: models})
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) callGetModel(req upstream.ProxyRequest) (upstream.ProxyResponse, upstream.UpstreamRecordMeta, error) {
	m, err := a.client.Models.Get(context.Background(), req.Model)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, toProviderError(err)
	}

	out := transform.OpenAIModelToNIR(transform.OpenAIModel{ID: m.ID, Created: m.Created, OwnedBy: m.OwnedBy})
	body, err := transform.GetModelResponseFromNIR(protocol.DialectOpenAI, out)
	if err != nil {
		return upstream.ProxyResponse{}, upstream.UpstreamRecordMeta{}, err
	}

	return upstream.ProxyResponse{Status: 200, Body: body, ContentType: "application/json"},
		upstream.UpstreamRecordMeta{CredentialID: a.credID},
		nil
}

func (a *NativeAdapter) buildChatParams(nir protocol.GenerateRequest) openaiSDK.ChatCompletionNewParams {
	msgs := make([]openaiSDK.ChatCompletionMessageParamUnion, 0, len(nir.Messages)+1)
	if nir.System != "" {
		msgs = append(msgs, openaiSDK.SystemMessage(nir.System))
	}
	for _, m := range nir.Messages {
		text := flattenText(m.Content)
		if m.Role == protocol.RoleAssistant {
			msgs = append(msgs, openaiSDK.AssistantMessage(text))
		} else {
			msgs = append(msgs, openaiSDK.UserMessage(text))
		}
	}

	params := openaiSDK.ChatCompletionNewParams{Messages: msgs, Model: nir.Model}
	if nir.Temperature != 0 {
		params.Temperature = openaiSDK.Float(nir.Temperature)
	}
	if nir.MaxTokens > 0 {
		params.MaxCompletionTokens = openaiSDK.Int(int64(nir.MaxTokens))
	}
	return params
}

func flattenText(blocks []protocol.ContentBlock) string {
	out := ""
	for _, b := range blocks {
		out += b.Text
	}
	return out
}
