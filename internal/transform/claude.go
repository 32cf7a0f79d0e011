package transform

import "github.com/nulpointcorp/llm-gateway/internal/protocol"

// Wire shapes for the Claude-style Messages API dialect.

type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ClaudeGenerateRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []ClaudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type ClaudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ClaudeUsage struct {
	InputTokens  uint32 `json:"input_tokens"`
	OutputTokens uint32 `json:"output_tokens"`
}

type ClaudeGenerateResponse struct {
	ID         string               `json:"id"`
	Model      string               `json:"model"`
	Role       string               `json:"role"`
	Content    []ClaudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Usage      ClaudeUsage          `json:"usage"`
}

type ClaudeCountTokensRequest struct {
	Model    string          `json:"model"`
	System   string          `json:"system,omitempty"`
	Messages []ClaudeMessage `json:"messages"`
}

type claudeContextManagement struct {
	OriginalInputTokens uint32 `json:"original_input_tokens"`
}

type ClaudeCountTokensResponse struct {
	InputTokens       uint32                   `json:"input_tokens"`
	ContextManagement *claudeContextManagement `json:"context_management,omitempty"`
}

type ClaudeModel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type ClaudeListModelsResponse struct {
	Data []ClaudeModel `json:"data"`
}

// ── NIR conversions ──────────────────────────────────────────────────────────

func claudeRoleToNIR(role string) protocol.Role {
	switch role {
	case "assistant":
		return protocol.RoleAssistant
	default:
		return protocol.RoleUser
	}
}

func claudeRoleFromNIR(r protocol.Role) string {
	if r == protocol.RoleAssistant {
		return "assistant"
	}
	return "user"
}

func ClaudeGenerateRequestToNIR(req ClaudeGenerateRequest) protocol.GenerateRequest {
	msgs := make([]protocol.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = protocol.Message{
			Role:    claudeRoleToNIR(m.Role),
			Content: []protocol.ContentBlock{{Type: "text", Text: m.Content}},
		}
	}
	return protocol.GenerateRequest{
		Model:       req.Model,
		System:      req.System,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
}

func ClaudeGenerateRequestFromNIR(nir protocol.GenerateRequest) ClaudeGenerateRequest {
	msgs := make([]ClaudeMessage, len(nir.Messages))
	for i, m := range nir.Messages {
		msgs[i] = ClaudeMessage{Role: claudeRoleFromNIR(m.Role), Content: flattenText(m.Content)}
	}
	maxTokens := nir.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return ClaudeGenerateRequest{
		Model:       nir.Model,
		System:      nir.System,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: nir.Temperature,
		Stream:      nir.Stream,
	}
}

func ClaudeGenerateResponseToNIR(resp ClaudeGenerateResponse) protocol.GenerateResponse {
	blocks := make([]protocol.ContentBlock, len(resp.Content))
	for i, c := range resp.Content {
		blocks[i] = protocol.ContentBlock{Type: c.Type, Text: c.Text}
	}
	return protocol.GenerateResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Content:    blocks,
		StopReason: resp.StopReason,
		Usage: protocol.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
}

func ClaudeGenerateResponseFromNIR(nir protocol.GenerateResponse) ClaudeGenerateResponse {
	blocks := make([]ClaudeContentBlock, len(nir.Content))
	for i, c := range nir.Content {
		blocks[i] = ClaudeContentBlock{Type: c.Type, Text: c.Text}
	}
	stopReason := nir.StopReason
	if stopReason == "" {
		stopReason = "end_turn"
	}
	return ClaudeGenerateResponse{
		ID:         nir.ID,
		Model:      nir.Model,
		Role:       "assistant",
		Content:    blocks,
		StopReason: stopReason,
		Usage: ClaudeUsage{
			InputTokens:  nir.Usage.InputTokens,
			OutputTokens: nir.Usage.OutputTokens,
		},
	}
}

func ClaudeCountTokensRequestToNIR(req ClaudeCountTokensRequest) protocol.CountTokensRequest {
	msgs := make([]protocol.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = protocol.Message{
			Role:    claudeRoleToNIR(m.Role),
			Content: []protocol.ContentBlock{{Type: "text", Text: m.Content}},
		}
	}
	return protocol.CountTokensRequest{Model: req.Model, System: req.System, Messages: msgs}
}

func ClaudeCountTokensRequestFromNIR(nir protocol.CountTokensRequest) ClaudeCountTokensRequest {
	msgs := make([]ClaudeMessage, len(nir.Messages))
	for i, m := range nir.Messages {
		msgs[i] = ClaudeMessage{Role: claudeRoleFromNIR(m.Role), Content: flattenText(m.Content)}
	}
	return ClaudeCountTokensRequest{Model: nir.Model, System: nir.System, Messages: msgs}
}

func ClaudeCountTokensResponseToNIR(resp ClaudeCountTokensResponse) protocol.CountTokensResponse {
	return protocol.CountTokensResponse{InputTokens: resp.InputTokens}
}

// ClaudeCountTokensResponseFromNIR builds the Claude-dialect count-tokens
// response, including the original_input_tokens echo SPEC_FULL.md §4.2
// requires whenever Claude is the destination dialect.
func ClaudeCountTokensResponseFromNIR(nir protocol.CountTokensResponse) ClaudeCountTokensResponse {
	return ClaudeCountTokensResponse{
		InputTokens:       nir.InputTokens,
		ContextManagement: &claudeContextManagement{OriginalInputTokens: nir.InputTokens},
	}
}

func ClaudeListModelsResponseToNIR(resp ClaudeListModelsResponse) protocol.ListModelsResponse {
	out := make([]protocol.ModelInfo, len(resp.Data))
	for i, m := range resp.Data {
		out[i] = ClaudeModelToNIR(m)
	}
	return protocol.ListModelsResponse{Models: out}
}

func ClaudeListModelsResponseFromNIR(nir protocol.ListModelsResponse) ClaudeListModelsResponse {
	out := make([]ClaudeModel, len(nir.Models))
	for i, m := range nir.Models {
		out[i] = ClaudeModelFromNIR(m)
	}
	return ClaudeListModelsResponse{Data: out}
}

func ClaudeModelToNIR(m ClaudeModel) protocol.ModelInfo {
	return protocol.ModelInfo{ID: m.ID, OwnedBy: "anthropic", CreatedAt: m.CreatedAt, Version: m.DisplayName}
}

func ClaudeModelFromNIR(nir protocol.ModelInfo) ClaudeModel {
	name := nir.Version
	if name == "" {
		name = nir.ID
	}
	return ClaudeModel{ID: nir.ID, DisplayName: name, CreatedAt: nir.CreatedAt}
}

func flattenText(blocks []protocol.ContentBlock) string {
	var s string
	for _, b := range blocks {
		s += b.Text
	}
	return s
}
