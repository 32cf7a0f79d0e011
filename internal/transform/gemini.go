package transform

import "github.com/nulpointcorp/llm-gateway/internal/protocol"

// Wire shapes for the Gemini-style Generative Language API dialect.

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []GeminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type GeminiGenerateRequest struct {
	Contents          []GeminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig  `json:"generationConfig,omitempty"`
}

type GeminiUsageMetadata struct {
	PromptTokenCount     uint32 `json:"promptTokenCount"`
	CandidatesTokenCount uint32 `json:"candidatesTokenCount"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type GeminiGenerateResponse struct {
	Candidates    []GeminiCandidate   `json:"candidates"`
	UsageMetadata GeminiUsageMetadata `json:"usageMetadata"`
	ModelVersion  string              `json:"modelVersion"`
}

type GeminiCountTokensRequest struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiCountTokensResponse struct {
	TotalTokens uint32 `json:"totalTokens"`
}

type GeminiModel struct {
	Name        string `json:"name"` // "models/gemini-1.5-pro"
	Version     string `json:"version"`
	DisplayName string `json:"displayName"`
}

type GeminiListModelsResponse struct {
	Models []GeminiModel `json:"models"`
}

// ── NIR conversions ──────────────────────────────────────────────────────────

func geminiRoleToNIR(role string) protocol.Role {
	if role == "model" {
		return protocol.RoleAssistant
	}
	return protocol.RoleUser
}

func geminiRoleFromNIR(r protocol.Role) string {
	if r == protocol.RoleAssistant {
		return "model"
	}
	return "user"
}

func GeminiGenerateRequestToNIR(req GeminiGenerateRequest) protocol.GenerateRequest {
	msgs := make([]protocol.Message, len(req.Contents))
	for i, c := range req.Contents {
		msgs[i] = protocol.Message{Role: geminiRoleToNIR(c.Role), Content: geminiPartsToBlocks(c.Parts)}
	}
	nir := protocol.GenerateRequest{Messages: msgs}
	if req.SystemInstruction != nil {
		nir.System = geminiPartsToText(req.SystemInstruction.Parts)
	}
	if req.GenerationConfig != nil {
		nir.MaxTokens = req.GenerationConfig.MaxOutputTokens
		nir.Temperature = req.GenerationConfig.Temperature
	}
	return nir
}

func GeminiGenerateRequestFromNIR(nir protocol.GenerateRequest) GeminiGenerateRequest {
	contents := make([]GeminiContent, len(nir.Messages))
	for i, m := range nir.Messages {
		contents[i] = GeminiContent{Role: geminiRoleFromNIR(m.Role), Parts: blocksToGeminiParts(m.Content)}
	}
	req := GeminiGenerateRequest{Contents: contents}
	if nir.System != "" {
		req.SystemInstruction = &geminiSystemInstruction{Parts: []GeminiPart{{Text: nir.System}}}
	}
	if nir.MaxTokens > 0 || nir.Temperature > 0 {
		req.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: nir.MaxTokens, Temperature: nir.Temperature}
	}
	return req
}

func GeminiGenerateResponseToNIR(resp GeminiGenerateResponse) protocol.GenerateResponse {
	var blocks []protocol.ContentBlock
	stopReason := ""
	if len(resp.Candidates) > 0 {
		blocks = geminiPartsToBlocks(resp.Candidates[0].Content.Parts)
		stopReason = resp.Candidates[0].FinishReason
	}
	return protocol.GenerateResponse{
		Model:      resp.ModelVersion,
		Content:    blocks,
		StopReason: stopReason,
		Usage: protocol.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
	}
}

func GeminiGenerateResponseFromNIR(nir protocol.GenerateResponse) GeminiGenerateResponse {
	return GeminiGenerateResponse{
		Candidates: []GeminiCandidate{
			{
				Content:      GeminiContent{Role: "model", Parts: blocksToGeminiParts(nir.Content)},
				FinishReason: geminiFinishReason(nir.StopReason),
			},
		},
		UsageMetadata: GeminiUsageMetadata{
			PromptTokenCount:     nir.Usage.InputTokens,
			CandidatesTokenCount: nir.Usage.OutputTokens,
		},
		ModelVersion: nir.Model,
	}
}

func geminiFinishReason(stopReason string) string {
	if stopReason == "" {
		return "STOP"
	}
	return stopReason
}

func GeminiCountTokensRequestToNIR(req GeminiCountTokensRequest) protocol.CountTokensRequest {
	msgs := make([]protocol.Message, len(req.Contents))
	for i, c := range req.Contents {
		msgs[i] = protocol.Message{Role: geminiRoleToNIR(c.Role), Content: geminiPartsToBlocks(c.Parts)}
	}
	return protocol.CountTokensRequest{Messages: msgs}
}

func GeminiCountTokensRequestFromNIR(nir protocol.CountTokensRequest) GeminiCountTokensRequest {
	contents := make([]GeminiContent, len(nir.Messages))
	for i, m := range nir.Messages {
		contents[i] = GeminiContent{Role: geminiRoleFromNIR(m.Role), Parts: blocksToGeminiParts(m.Content)}
	}
	if nir.System != "" {
		contents = append([]GeminiContent{{Role: "user", Parts: []GeminiPart{{Text: nir.System}}}}, contents...)
	}
	return GeminiCountTokensRequest{Contents: contents}
}

func GeminiCountTokensResponseToNIR(resp GeminiCountTokensResponse) protocol.CountTokensResponse {
	return protocol.CountTokensResponse{InputTokens: resp.TotalTokens}
}

func GeminiCountTokensResponseFromNIR(nir protocol.CountTokensResponse) GeminiCountTokensResponse {
	return GeminiCountTokensResponse{TotalTokens: nir.InputTokens}
}

func GeminiListModelsResponseToNIR(resp GeminiListModelsResponse) protocol.ListModelsResponse {
	out := make([]protocol.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		out[i] = GeminiModelToNIR(m)
	}
	return protocol.ListModelsResponse{Models: out}
}

func GeminiListModelsResponseFromNIR(nir protocol.ListModelsResponse) GeminiListModelsResponse {
	out := make([]GeminiModel, len(nir.Models))
	for i, m := range nir.Models {
		out[i] = GeminiModelFromNIR(m)
	}
	return GeminiListModelsResponse{Models: out}
}

func GeminiModelToNIR(m GeminiModel) protocol.ModelInfo {
	return protocol.ModelInfo{
		ID:      protocol.StripModelsPrefix(m.Name),
		OwnedBy: "google",
		Version: nonEmpty(m.Version, "unknown"),
	}
}

func GeminiModelFromNIR(nir protocol.ModelInfo) GeminiModel {
	return GeminiModel{
		Name:        protocol.AddModelsPrefix(nir.ID),
		Version:     nonEmpty(nir.Version, "unknown"),
		DisplayName: nir.ID,
	}
}

func geminiPartsToBlocks(parts []GeminiPart) []protocol.ContentBlock {
	out := make([]protocol.ContentBlock, len(parts))
	for i, p := range parts {
		out[i] = protocol.ContentBlock{Type: "text", Text: p.Text}
	}
	return out
}

func blocksToGeminiParts(blocks []protocol.ContentBlock) []GeminiPart {
	out := make([]GeminiPart, len(blocks))
	for i, b := range blocks {
		out[i] = GeminiPart{Text: b.Text}
	}
	return out
}

func geminiPartsToText(parts []GeminiPart) string {
	var s string
	for _, p := range parts {
		s += p.Text
	}
	return s
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
