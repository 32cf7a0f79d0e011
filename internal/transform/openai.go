package transform

import "github.com/nulpointcorp/llm-gateway/internal/protocol"

// Wire shapes for the OpenAI-style Chat Completions API dialect.

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIGenerateRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type OpenAIChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIChoice struct {
	Index        int                 `json:"index"`
	Message      OpenAIChoiceMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

type OpenAIGenerateResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAI has no native count-tokens endpoint; the dialect's "input tokens"
// request/response pair mirrors the shape the Responses API input-token
// counting convention uses, per SPEC_FULL.md's OpenAIInputTokens operation.
type OpenAIInputTokensRequest struct {
	Model    string          `json:"model"`
	Messages []OpenAIMessage `json:"messages"`
}

type OpenAIInputTokensResponse struct {
	InputTokens uint32 `json:"input_tokens"`
}

type OpenAIModel struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type OpenAIListModelsResponse struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}

// ── NIR conversions ──────────────────────────────────────────────────────────

func openaiRoleToNIR(role string) protocol.Role {
	switch role {
	case "assistant":
		return protocol.RoleAssistant
	case "system":
		return protocol.RoleSystem
	default:
		return protocol.RoleUser
	}
}

func openaiRoleFromNIR(r protocol.Role) string {
	switch r {
	case protocol.RoleAssistant:
		return "assistant"
	case protocol.RoleSystem:
		return "system"
	default:
		return "user"
	}
}

func OpenAIGenerateRequestToNIR(req OpenAIGenerateRequest) protocol.GenerateRequest {
	var system string
	var msgs []protocol.Message
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		msgs = append(msgs, protocol.Message{
			Role:    openaiRoleToNIR(m.Role),
			Content: []protocol.ContentBlock{{Type: "text", Text: m.Content}},
		})
	}
	return protocol.GenerateRequest{
		Model:       req.Model,
		System:      system,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
}

func OpenAIGenerateRequestFromNIR(nir protocol.GenerateRequest) OpenAIGenerateRequest {
	var msgs []OpenAIMessage
	if nir.System != "" {
		msgs = append(msgs, OpenAIMessage{Role: "system", Content: nir.System})
	}
	for _, m := range nir.Messages {
		msgs = append(msgs, OpenAIMessage{Role: openaiRoleFromNIR(m.Role), Content: flattenText(m.Content)})
	}
	return OpenAIGenerateRequest{
		Model:       nir.Model,
		Messages:    msgs,
		MaxTokens:   nir.MaxTokens,
		Temperature: nir.Temperature,
		Stream:      nir.Stream,
	}
}

func OpenAIGenerateResponseToNIR(resp OpenAIGenerateResponse) protocol.GenerateResponse {
	var content []protocol.ContentBlock
	stopReason := ""
	if len(resp.Choices) > 0 {
		content = []protocol.ContentBlock{{Type: "text", Text: resp.Choices[0].Message.Content}}
		stopReason = resp.Choices[0].FinishReason
	}
	return protocol.GenerateResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Content:    content,
		StopReason: stopReason,
		Usage: protocol.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
}

func OpenAIGenerateResponseFromNIR(nir protocol.GenerateResponse) OpenAIGenerateResponse {
	stopReason := nir.StopReason
	if stopReason == "" {
		stopReason = "stop"
	}
	return OpenAIGenerateResponse{
		ID:    nir.ID,
		Model: nir.Model,
		Choices: []OpenAIChoice{
			{
				Index:        0,
				Message:      OpenAIChoiceMessage{Role: "assistant", Content: flattenText(nir.Content)},
				FinishReason: stopReason,
			},
		},
		Usage: OpenAIUsage{
			PromptTokens:     nir.Usage.InputTokens,
			CompletionTokens: nir.Usage.OutputTokens,
			TotalTokens:      nir.Usage.InputTokens + nir.Usage.OutputTokens,
		},
	}
}

func OpenAIInputTokensRequestToNIR(req OpenAIInputTokensRequest) protocol.CountTokensRequest {
	msgs := make([]protocol.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = protocol.Message{Role: openaiRoleToNIR(m.Role), Content: []protocol.ContentBlock{{Type: "text", Text: m.Content}}}
	}
	return protocol.CountTokensRequest{Model: req.Model, Messages: msgs}
}

func OpenAIInputTokensRequestFromNIR(nir protocol.CountTokensRequest) OpenAIInputTokensRequest {
	msgs := make([]OpenAIMessage, len(nir.Messages))
	for i, m := range nir.Messages {
		msgs[i] = OpenAIMessage{Role: openaiRoleFromNIR(m.Role), Content: flattenText(m.Content)}
	}
	return OpenAIInputTokensRequest{Model: nir.Model, Messages: msgs}
}

func OpenAIInputTokensResponseToNIR(resp OpenAIInputTokensResponse) protocol.CountTokensResponse {
	return protocol.CountTokensResponse{InputTokens: resp.InputTokens}
}

func OpenAIInputTokensResponseFromNIR(nir protocol.CountTokensResponse) OpenAIInputTokensResponse {
	return OpenAIInputTokensResponse{InputTokens: nir.InputTokens}
}

func OpenAIListModelsResponseToNIR(resp OpenAIListModelsResponse) protocol.ListModelsResponse {
	out := make([]protocol.ModelInfo, len(resp.Data))
	for i, m := range resp.Data {
		out[i] = OpenAIModelToNIR(m)
	}
	return protocol.ListModelsResponse{Models: out}
}

func OpenAIListModelsResponseFromNIR(nir protocol.ListModelsResponse) OpenAIListModelsResponse {
	out := make([]OpenAIModel, len(nir.Models))
	for i, m := range nir.Models {
		out[i] = OpenAIModelFromNIR(m)
	}
	return OpenAIListModelsResponse{Object: "list", Data: out}
}

func OpenAIModelToNIR(m OpenAIModel) protocol.ModelInfo {
	return protocol.ModelInfo{ID: m.ID, OwnedBy: nonEmpty(m.OwnedBy, "unknown"), CreatedAt: m.Created}
}

func OpenAIModelFromNIR(nir protocol.ModelInfo) OpenAIModel {
	return OpenAIModel{ID: nir.ID, Created: nir.CreatedAt, OwnedBy: nonEmpty(nir.OwnedBy, "unknown")}
}
