package jsonrs

import (
	"encoding/json"
)

// stdJSON is the JSON implementation of the standard library.
type stdJSON struct{}

func (j *stdJSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j *stdJSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
