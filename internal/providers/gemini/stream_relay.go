package gemini

import (
	"encoding/json"
	"io"
)

func pipe() (io.Reader, io.WriteCloser) {
	return io.Pipe()
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
