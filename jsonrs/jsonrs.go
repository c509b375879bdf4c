package jsonrs

import (
	"github.com/rudderlabs/rudder-go-kit/config"
)

const (
	// StdLib is the key for the standard library json implementation.
	StdLib = "std"
	// JsoniterLib is the key for the jsoniter json implementation.
	JsoniterLib = "jsoniter"
)

// Default is the JSON implementation used by the package level functions.
var Default = New(config.Default)

// JSON is the interface for a json implementation.
type JSON interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// New returns a JSON implementation based on the configuration.
func New(conf *config.Config) JSON {
	switch conf.GetStringVar(JsoniterLib, "Json.Library") {
	case StdLib:
		return &stdJSON{}
	default:
		return &jsoniterJSON{}
	}
}

// Marshal marshals v to json using the default implementation.
func Marshal(v any) ([]byte, error) {
	return Default.Marshal(v)
}

// Unmarshal unmarshals json data to v using the default implementation.
func Unmarshal(data []byte, v any) error {
	return Default.Unmarshal(data, v)
}
