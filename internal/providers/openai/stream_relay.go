package openai

import (
	"encoding/json"
	"io"

	openaiSDK "github.com/openai/openai-go/v3"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

func pipe() (io.Reader, io.WriteCloser) {
	return io.Pipe()
}

// encodeOpenAIChunk re-encodes one SDK streaming chunk into the same
// OpenAI-dialect SSE wire shape stream.OpenAICodec decodes.
func encodeOpenAIChunk(chunk openaiSDK.ChatCompletionChunk) protocol.SSEEvent {
	body, _ := json.Marshal(chunk)
	return protocol.SSEEvent{Data: string(body)}
}
