// Package codec centralizes element encoding for the perfectmap binary
// container format.
//
// The container stores each key and value as an opaque, length-prefixed
// blob produced by a Codec. Codec selection is a compatibility boundary:
// a container must be decoded with the codec family it was encoded with.
package codec

import "fmt"

// Codec encodes and decodes container elements.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when the caller passes nil.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name. Embedding applications
// that record the codec name alongside a container use this to select the
// right decoder.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests and benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
