package proxy

import (
	"encoding/json"
	"strings"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

// parseDialectRoute resolves {dialect, operation, model} from a provider's
// own sub-path and body conventions. path is the {*path} wildcard tail,
// always starting with "/".
func parseDialectRoute(path string, body []byte) (protocol.Dialect, protocol.Operation, string, bool) {
	switch {
	case path == "/v1/messages":
		model, stream := peekClaudeBody(body)
		if stream {
			return protocol.DialectClaude, protocol.StreamGenerateContent, model, true
		}
		return protocol.DialectClaude, protocol.GenerateContent, model, true

	case path == "/v1/messages/count_tokens":
		model, _ := peekClaudeBody(body)
		return protocol.DialectClaude, protocol.CountTokens, model, true

	case path == "/v1/models" || path == "/v1/messages/models":
		return protocol.DialectClaude, protocol.ListModels, "", true

	case path == "/v1/chat/completions" || path == "/v1/completions":
		model, stream := peekOpenAIBody(body)
		if stream {
			return protocol.DialectOpenAI, protocol.StreamGenerateContent, model, true
		}
		return protocol.DialectOpenAI, protocol.GenerateContent, model, true

	case path == "/v1/models_openai":
		return protocol.DialectOpenAI, protocol.ListModels, "", true

	case path == "/v1beta/models" || strings.HasPrefix(path, "/v1beta/models/"):
		return parseGeminiPath(path)
	}

	return 0, 0, "", false
}

func peekClaudeBody(body []byte) (model string, stream bool) {
	var peek struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	_ = json.Unmarshal(body, &peek)
	return peek.Model, peek.Stream
}

func peekOpenAIBody(body []byte) (model string, stream bool) {
	var peek struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	_ = json.Unmarshal(body, &peek)
	return peek.Model, peek.Stream
}

// parseGeminiPath handles "/v1beta/models/{model}:{action}" and
// "/v1beta/models/{model}" (GetModel) / "/v1beta/models" (ListModels).
func parseGeminiPath(path string) (protocol.Dialect, protocol.Operation, string, bool) {
	rest := strings.TrimPrefix(path, "/v1beta/models")
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return protocol.DialectGemini, protocol.ListModels, "", true
	}

	model, action, hasAction := strings.Cut(rest, ":")
	if !hasAction {
		return protocol.DialectGemini, protocol.GetModel, model, true
	}

	switch action {
	case "generateContent":
		return protocol.DialectGemini, protocol.GenerateContent, model, true
	case "streamGenerateContent":
		return protocol.DialectGemini, protocol.StreamGenerateContent, model, true
	case "countTokens":
		return protocol.DialectGemini, protocol.CountTokens, model, true
	default:
		return 0, 0, "", false
	}
}
