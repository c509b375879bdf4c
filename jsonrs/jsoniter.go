package jsonrs

import (
	jsoniter "github.com/json-iterator/go"
)

// jsoniterJSON is the JSON implementation of github.com/json-iterator/go.
type jsoniterJSON struct{}

func (j *jsoniterJSON) Marshal(v any) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
}

func (j *jsoniterJSON) Unmarshal(data []byte, v any) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, v)
}
