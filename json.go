package perfectmap

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"

	perrors "github.com/tamirms/perfectmap/errors"
	"github.com/tamirms/perfectmap/mph"
)

// The JSON form of a map is a three-field record, in wire order: "values"
// (slot-ordered), "keys" (slot-ordered, null when not retained), and
// "function" (the framed perfect hash function bytes, base64). Decoding
// accepts both the named object form and the positional array form
// [values, keys, function]. Unknown, duplicated and missing fields are
// typed deserialization errors; so are function bytes the mph package
// cannot parse. All decode errors are recoverable.

// MarshalJSON encodes the map as {"values": ..., "keys": ..., "function": ...}.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	return marshalRecord(m.values, m.keys, m.keys != nil, m.fn)
}

// MarshalJSON encodes the map with a null "keys" placeholder.
func (m *KeylessMap[K, V]) MarshalJSON() ([]byte, error) {
	return marshalRecord[K](m.values, nil, false, m.fn)
}

// UnmarshalJSON decodes data with default options; use DecodeJSON to attach
// a custom hasher.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	dm, err := DecodeJSON[K, V](data)
	if err != nil {
		return err
	}
	*m = *dm
	return nil
}

// UnmarshalJSON decodes data with default options; use DecodeKeylessJSON to
// attach a custom hasher.
func (m *KeylessMap[K, V]) UnmarshalJSON(data []byte) error {
	dm, err := DecodeKeylessJSON[K, V](data)
	if err != nil {
		return err
	}
	*m = *dm
	return nil
}

// DecodeJSON reconstructs a Map from its JSON form. The construction seed is
// recovered from the embedded function, so WithSeed has no effect here;
// WithHasher must repeat the hasher the map was built with, if any.
func DecodeJSON[K, V any](data []byte, opts ...Option[K]) (*Map[K, V], error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	fn, err := mph.Unmarshal(rec.function)
	if err != nil {
		return nil, err
	}

	var values []V
	if err := gojson.Unmarshal(rec.values, &values); err != nil {
		return nil, fmt.Errorf("perfectmap: decoding values: %w", err)
	}
	var keys []K
	if rec.hasKeys {
		if err := gojson.Unmarshal(rec.keys, &keys); err != nil {
			return nil, fmt.Errorf("perfectmap: decoding keys: %w", err)
		}
		// A zero-length keys array is the discarded-keys form, same as null.
		if len(keys) == 0 {
			keys = nil
		}
	}
	if fn.Len() != len(values) {
		return nil, fmt.Errorf("%w: %d values, function has %d slots", perrors.ErrLengthMismatch, len(values), fn.Len())
	}
	if keys != nil && len(keys) != len(values) {
		return nil, fmt.Errorf("%w: %d keys, %d values", perrors.ErrLengthMismatch, len(keys), len(values))
	}

	cfg := newConfig(opts...)
	hasher, err := cfg.hasherOrDefault()
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{fn: fn, values: values, keys: keys, hasher: hasher, seed: fn.Seed()}, nil
}

// DecodeKeylessJSON reconstructs a KeylessMap from its JSON form. A
// non-empty "keys" field is rejected.
func DecodeKeylessJSON[K, V any](data []byte, opts ...Option[K]) (*KeylessMap[K, V], error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	if rec.hasKeys {
		var probe []gojson.RawMessage
		if err := gojson.Unmarshal(rec.keys, &probe); err != nil {
			return nil, fmt.Errorf("perfectmap: decoding keys: %w", err)
		}
		if len(probe) > 0 {
			return nil, fmt.Errorf("%w: %d keys present", perrors.ErrUnexpectedKeys, len(probe))
		}
	}
	fn, err := mph.Unmarshal(rec.function)
	if err != nil {
		return nil, err
	}

	var values []V
	if err := gojson.Unmarshal(rec.values, &values); err != nil {
		return nil, fmt.Errorf("perfectmap: decoding values: %w", err)
	}
	if fn.Len() != len(values) {
		return nil, fmt.Errorf("%w: %d values, function has %d slots", perrors.ErrLengthMismatch, len(values), fn.Len())
	}

	cfg := newConfig(opts...)
	hasher, err := cfg.hasherOrDefault()
	if err != nil {
		return nil, err
	}
	return &KeylessMap[K, V]{fn: fn, values: values, hasher: hasher, seed: fn.Seed()}, nil
}

func marshalRecord[K, V any](values []V, keys []K, hasKeys bool, fn mph.Function) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"values":`)
	b, err := gojson.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("perfectmap: encoding values: %w", err)
	}
	buf.Write(b)

	buf.WriteString(`,"keys":`)
	if hasKeys {
		b, err = gojson.Marshal(keys)
		if err != nil {
			return nil, fmt.Errorf("perfectmap: encoding keys: %w", err)
		}
		buf.Write(b)
	} else {
		buf.WriteString("null")
	}

	buf.WriteString(`,"function":`)
	fb, err := mph.Marshal(fn)
	if err != nil {
		return nil, err
	}
	b, err = gojson.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("perfectmap: encoding function: %w", err)
	}
	buf.Write(b)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// rawRecord holds the undecoded fields of a serialized map.
type rawRecord struct {
	values      gojson.RawMessage
	keys        gojson.RawMessage
	function    []byte
	hasValues   bool
	hasKeys     bool
	hasFunction bool
}

// decodeRecord parses either record form into raw fields, enforcing the
// field taxonomy: unknown fields, duplicated fields and missing required
// fields are rejected.
func decodeRecord(data []byte) (*rawRecord, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("perfectmap: decoding map record: %w", err)
	}
	delim, ok := tok.(gojson.Delim)
	if !ok {
		return nil, fmt.Errorf("perfectmap: expected object or array, got %v", tok)
	}

	rec := &rawRecord{}
	switch delim {
	case '{':
		if err := decodeNamedFields(dec, rec); err != nil {
			return nil, err
		}
	case '[':
		if err := decodePositionalFields(dec, rec); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("perfectmap: expected object or array, got %q", delim.String())
	}

	if !rec.hasValues {
		return nil, fmt.Errorf("%w: values", perrors.ErrMissingField)
	}
	if !rec.hasFunction {
		return nil, fmt.Errorf("%w: function", perrors.ErrMissingField)
	}
	// A null keys field is the absent-equivalent placeholder.
	if rec.hasKeys && string(bytes.TrimSpace(rec.keys)) == "null" {
		rec.hasKeys = false
		rec.keys = nil
	}
	return rec, nil
}

func decodeNamedFields(dec *gojson.Decoder, rec *rawRecord) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("perfectmap: decoding field name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("perfectmap: expected field name, got %v", tok)
		}
		switch name {
		case "values":
			if rec.hasValues {
				return fmt.Errorf("%w: values", perrors.ErrDuplicateField)
			}
			if err := dec.Decode(&rec.values); err != nil {
				return fmt.Errorf("perfectmap: decoding values: %w", err)
			}
			rec.hasValues = true
		case "keys":
			if rec.hasKeys {
				return fmt.Errorf("%w: keys", perrors.ErrDuplicateField)
			}
			if err := dec.Decode(&rec.keys); err != nil {
				return fmt.Errorf("perfectmap: decoding keys: %w", err)
			}
			rec.hasKeys = true
		case "function":
			if rec.hasFunction {
				return fmt.Errorf("%w: function", perrors.ErrDuplicateField)
			}
			if err := dec.Decode(&rec.function); err != nil {
				return fmt.Errorf("perfectmap: decoding function: %w", err)
			}
			rec.hasFunction = true
		default:
			return fmt.Errorf("%w: %q", perrors.ErrUnknownField, name)
		}
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return fmt.Errorf("perfectmap: decoding map record: %w", err)
	}
	return nil
}

func decodePositionalFields(dec *gojson.Decoder, rec *rawRecord) error {
	if !dec.More() {
		return fmt.Errorf("%w: values", perrors.ErrMissingField)
	}
	if err := dec.Decode(&rec.values); err != nil {
		return fmt.Errorf("perfectmap: decoding values: %w", err)
	}
	rec.hasValues = true

	if !dec.More() {
		return fmt.Errorf("%w: keys", perrors.ErrMissingField)
	}
	if err := dec.Decode(&rec.keys); err != nil {
		return fmt.Errorf("perfectmap: decoding keys: %w", err)
	}
	rec.hasKeys = true

	if !dec.More() {
		return fmt.Errorf("%w: function", perrors.ErrMissingField)
	}
	if err := dec.Decode(&rec.function); err != nil {
		return fmt.Errorf("perfectmap: decoding function: %w", err)
	}
	rec.hasFunction = true

	if dec.More() {
		return fmt.Errorf("%w: extra positional element", perrors.ErrUnknownField)
	}
	if _, err := dec.Token(); err != nil { // closing bracket
		return fmt.Errorf("perfectmap: decoding map record: %w", err)
	}
	return nil
}
