// Package transform implements pairwise translation between the three
// downstream wire dialects via a neutral intermediate representation (see
// protocol.GenerateRequest et al.): each dialect owns a ToNIR/FromNIR pair
// per operation family, so translating dialect A to dialect B is
// A.ToNIR → B.FromNIR, and every dialect pair is covered without an O(n^2)
// set of direct translators.
package transform

import (
	"encoding/json"
	"fmt"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

// ParseFailureError marks a transform failure caused by a malformed request
// body — per SPEC_FULL.md §7, these are not retried.
type ParseFailureError struct {
	Dialect protocol.Dialect
	Op      protocol.Operation
	Err     error
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("transform: parse %s %s: %v", e.Dialect, e.Op, e.Err)
}

func (e *ParseFailureError) Unwrap() error { return e.Err }

// GenerateRequestToNIR parses a dialect-tagged generate request body into
// the neutral representation.
func GenerateRequestToNIR(dialect protocol.Dialect, body []byte) (protocol.GenerateRequest, error) {
	switch dialect {
	case protocol.DialectClaude:
		var req ClaudeGenerateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return protocol.GenerateRequest{}, &ParseFailureError{Dialect: dialect, Op: protocol.GenerateContent, Err: err}
		}
		return ClaudeGenerateRequestToNIR(req), nil
	case protocol.DialectGemini:
		var req GeminiGenerateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return protocol.GenerateRequest{}, &ParseFailureError{Dialect: dialect, Op: protocol.GenerateContent, Err: err}
		}
		return GeminiGenerateRequestToNIR(req), nil
	case protocol.DialectOpenAI:
		var req OpenAIGenerateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return protocol.GenerateRequest{}, &ParseFailureError{Dialect: dialect, Op: protocol.GenerateContent, Err: err}
		}
		return OpenAIGenerateRequestToNIR(req), nil
	default:
		return protocol.GenerateRequest{}, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

// GenerateRequestFromNIR serializes the neutral representation into a
// dialect-tagged generate request body.
func GenerateRequestFromNIR(dialect protocol.Dialect, nir protocol.GenerateRequest) ([]byte, error) {
	switch dialect {
	case protocol.DialectClaude:
		return json.Marshal(ClaudeGenerateRequestFromNIR(nir))
	case protocol.DialectGemini:
		return json.Marshal(GeminiGenerateRequestFromNIR(nir))
	case protocol.DialectOpenAI:
		return json.Marshal(OpenAIGenerateRequestFromNIR(nir))
	default:
		return nil, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

// GenerateResponseToNIR parses a dialect-tagged non-stream generate response.
func GenerateResponseToNIR(dialect protocol.Dialect, body []byte) (protocol.GenerateResponse, error) {
	switch dialect {
	case protocol.DialectClaude:
		var resp ClaudeGenerateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.GenerateResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.GenerateContent, Err: err}
		}
		return ClaudeGenerateResponseToNIR(resp), nil
	case protocol.DialectGemini:
		var resp GeminiGenerateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.GenerateResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.GenerateContent, Err: err}
		}
		return GeminiGenerateResponseToNIR(resp), nil
	case protocol.DialectOpenAI:
		var resp OpenAIGenerateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.GenerateResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.GenerateContent, Err: err}
		}
		return OpenAIGenerateResponseToNIR(resp), nil
	default:
		return protocol.GenerateResponse{}, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

// GenerateResponseFromNIR serializes the neutral representation into a
// dialect-tagged non-stream generate response body.
func GenerateResponseFromNIR(dialect protocol.Dialect, nir protocol.GenerateResponse) ([]byte, error) {
	switch dialect {
	case protocol.DialectClaude:
		return json.Marshal(ClaudeGenerateResponseFromNIR(nir))
	case protocol.DialectGemini:
		return json.Marshal(GeminiGenerateResponseFromNIR(nir))
	case protocol.DialectOpenAI:
		return json.Marshal(OpenAIGenerateResponseFromNIR(nir))
	default:
		return nil, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

// CountTokensRequestToNIR parses a dialect-tagged count-tokens request.
func CountTokensRequestToNIR(dialect protocol.Dialect, body []byte) (protocol.CountTokensRequest, error) {
	switch dialect {
	case protocol.DialectClaude:
		var req ClaudeCountTokensRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return protocol.CountTokensRequest{}, &ParseFailureError{Dialect: dialect, Op: protocol.CountTokens, Err: err}
		}
		return ClaudeCountTokensRequestToNIR(req), nil
	case protocol.DialectGemini:
		var req GeminiCountTokensRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return protocol.CountTokensRequest{}, &ParseFailureError{Dialect: dialect, Op: protocol.CountTokens, Err: err}
		}
		return GeminiCountTokensRequestToNIR(req), nil
	case protocol.DialectOpenAI:
		var req OpenAIInputTokensRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return protocol.CountTokensRequest{}, &ParseFailureError{Dialect: dialect, Op: protocol.CountTokens, Err: err}
		}
		return OpenAIInputTokensRequestToNIR(req), nil
	default:
		return protocol.CountTokensRequest{}, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

func CountTokensRequestFromNIR(dialect protocol.Dialect, nir protocol.CountTokensRequest) ([]byte, error) {
	switch dialect {
	case protocol.DialectClaude:
		return json.Marshal(ClaudeCountTokensRequestFromNIR(nir))
	case protocol.DialectGemini:
		return json.Marshal(GeminiCountTokensRequestFromNIR(nir))
	case protocol.DialectOpenAI:
		return json.Marshal(OpenAIInputTokensRequestFromNIR(nir))
	default:
		return nil, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

func CountTokensResponseToNIR(dialect protocol.Dialect, body []byte) (protocol.CountTokensResponse, error) {
	switch dialect {
	case protocol.DialectClaude:
		var resp ClaudeCountTokensResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.CountTokensResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.CountTokens, Err: err}
		}
		return ClaudeCountTokensResponseToNIR(resp), nil
	case protocol.DialectGemini:
		var resp GeminiCountTokensResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.CountTokensResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.CountTokens, Err: err}
		}
		return GeminiCountTokensResponseToNIR(resp), nil
	case protocol.DialectOpenAI:
		var resp OpenAIInputTokensResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.CountTokensResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.CountTokens, Err: err}
		}
		return OpenAIInputTokensResponseToNIR(resp), nil
	default:
		return protocol.CountTokensResponse{}, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

func CountTokensResponseFromNIR(dialect protocol.Dialect, nir protocol.CountTokensResponse) ([]byte, error) {
	switch dialect {
	case protocol.DialectClaude:
		return json.Marshal(ClaudeCountTokensResponseFromNIR(nir))
	case protocol.DialectGemini:
		return json.Marshal(GeminiCountTokensResponseFromNIR(nir))
	case protocol.DialectOpenAI:
		return json.Marshal(OpenAIInputTokensResponseFromNIR(nir))
	default:
		return nil, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

func ListModelsResponseToNIR(dialect protocol.Dialect, body []byte) (protocol.ListModelsResponse, error) {
	switch dialect {
	case protocol.DialectClaude:
		var resp ClaudeListModelsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.ListModelsResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.ListModels, Err: err}
		}
		return ClaudeListModelsResponseToNIR(resp), nil
	case protocol.DialectGemini:
		var resp GeminiListModelsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.ListModelsResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.ListModels, Err: err}
		}
		return GeminiListModelsResponseToNIR(resp), nil
	case protocol.DialectOpenAI:
		var resp OpenAIListModelsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return protocol.ListModelsResponse{}, &ParseFailureError{Dialect: dialect, Op: protocol.ListModels, Err: err}
		}
		return OpenAIListModelsResponseToNIR(resp), nil
	default:
		return protocol.ListModelsResponse{}, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

func ListModelsResponseFromNIR(dialect protocol.Dialect, nir protocol.ListModelsResponse) ([]byte, error) {
	switch dialect {
	case protocol.DialectClaude:
		return json.Marshal(ClaudeListModelsResponseFromNIR(nir))
	case protocol.DialectGemini:
		return json.Marshal(GeminiListModelsResponseFromNIR(nir))
	case protocol.DialectOpenAI:
		return json.Marshal(OpenAIListModelsResponseFromNIR(nir))
	default:
		return nil, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

// GetModelResponseToNIR parses a dialect-tagged single-model response (the
// bare object each dialect's GET /models/{id} returns, not the list wrapper).
func GetModelResponseToNIR(dialect protocol.Dialect, body []byte) (protocol.ModelInfo, error) {
	switch dialect {
	case protocol.DialectClaude:
		var m ClaudeModel
		if err := json.Unmarshal(body, &m); err != nil {
			return protocol.ModelInfo{}, &ParseFailureError{Dialect: dialect, Op: protocol.GetModel, Err: err}
		}
		return ClaudeModelToNIR(m), nil
	case protocol.DialectGemini:
		var m GeminiModel
		if err := json.Unmarshal(body, &m); err != nil {
			return protocol.ModelInfo{}, &ParseFailureError{Dialect: dialect, Op: protocol.GetModel, Err: err}
		}
		return GeminiModelToNIR(m), nil
	case protocol.DialectOpenAI:
		var m OpenAIModel
		if err := json.Unmarshal(body, &m); err != nil {
			return protocol.ModelInfo{}, &ParseFailureError{Dialect: dialect, Op: protocol.GetModel, Err: err}
		}
		return OpenAIModelToNIR(m), nil
	default:
		return protocol.ModelInfo{}, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}

// GetModelResponseFromNIR serializes the neutral model representation into a
// dialect-tagged single-model response body.
func GetModelResponseFromNIR(dialect protocol.Dialect, nir protocol.ModelInfo) ([]byte, error) {
	switch dialect {
	case protocol.DialectClaude:
		return json.Marshal(ClaudeModelFromNIR(nir))
	case protocol.DialectGemini:
		return json.Marshal(GeminiModelFromNIR(nir))
	case protocol.DialectOpenAI:
		return json.Marshal(OpenAIModelFromNIR(nir))
	default:
		return nil, fmt.Errorf("transform: unknown dialect %d", dialect)
	}
}
