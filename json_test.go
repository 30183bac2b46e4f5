// json_test.go tests the tagged JSON record codec: round trips in named and
// positional form, field order on the wire, and the strict decode error
// taxonomy (unknown, duplicate, missing fields, invalid function bytes).
package perfectmap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"

	perrors "github.com/tamirms/perfectmap/errors"
)

// recordFields splits a marshaled map record into its raw named fields.
type recordFields struct {
	Values   gojson.RawMessage `json:"values"`
	Keys     gojson.RawMessage `json:"keys"`
	Function gojson.RawMessage `json:"function"`
}

func splitRecord(t *testing.T, data []byte) recordFields {
	t.Helper()
	var rf recordFields
	if err := gojson.Unmarshal(data, &rf); err != nil {
		t.Fatalf("splitting record: %v", err)
	}
	return rf
}

func TestMapJSONRoundTrip(t *testing.T) {
	m := New([]string{"a", "b", "c", "d"}, []int{1, 2, 3, 4})

	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := DecodeJSON[string, int](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	for i, k := range []string{"a", "b", "c", "d"} {
		if v, ok := restored.Get(k); !ok || v != i+1 {
			t.Errorf("restored Get(%q) = (%d, %v), want (%d, true)", k, v, ok, i+1)
		}
	}
	if !slices.Equal(slices.Collect(m.Values()), slices.Collect(restored.Values())) {
		t.Error("restored values buffer differs from original")
	}
}

func TestMapJSONRoundTripPreservedKeys(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 50)
	values := make([]int, len(keys))
	for i := range values {
		values[i] = i
	}
	m := NewPreserveKeys(keys, values)

	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := DecodeJSON[string, int](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !restored.HasKeys() {
		t.Fatal("restored map lost its retained keys")
	}
	if !slices.Equal(slices.Collect(m.Keys()), slices.Collect(restored.Keys())) {
		t.Error("restored key buffer differs from original")
	}
	for _, k := range keys {
		want, _ := m.Get(k)
		if got, ok := restored.Get(k); !ok || got != want {
			t.Errorf("restored Get(%q) = (%d, %v), want (%d, true)", k, got, ok, want)
		}
	}
}

func TestKeylessJSONRoundTrip(t *testing.T) {
	m := NewKeyless([]string{"a", "b", "c", "d"}, []int{1, 2, 3, 4})

	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := DecodeKeylessJSON[string, int](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, k := range []string{"a", "b", "c", "d"} {
		if v, ok := restored.Get(k); !ok || v != i+1 {
			t.Errorf("restored Get(%q) = (%d, %v), want (%d, true)", k, v, ok, i+1)
		}
	}
}

func TestMapUnmarshalJSONMethod(t *testing.T) {
	m := NewPreserveKeys([]string{"a", "b"}, []int{1, 2})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Map[string, int]
	if err := gojson.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := restored.Get("b"); !ok || v != 2 {
		t.Errorf(`restored Get("b") = (%d, %v), want (2, true)`, v, ok)
	}
}

// TestJSONFieldOrder pins the wire order: values, then keys, then function.
func TestJSONFieldOrder(t *testing.T) {
	m := NewPreserveKeys([]string{"a"}, []int{1})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(data)
	if !strings.HasPrefix(s, `{"values":`) {
		t.Errorf("record does not start with values field: %s", s)
	}
	ki := strings.Index(s, `"keys":`)
	fi := strings.Index(s, `"function":`)
	if ki < 0 || fi < 0 || ki > fi {
		t.Errorf("field order violated: keys at %d, function at %d in %s", ki, fi, s)
	}
}

func TestKeylessJSONKeysNull(t *testing.T) {
	m := NewKeyless([]string{"a"}, []int{1})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rf := splitRecord(t, data)
	if string(rf.Keys) != "null" {
		t.Errorf("keyless keys field = %s, want null", rf.Keys)
	}
}

func TestJSONPositionalDecode(t *testing.T) {
	m := NewPreserveKeys([]string{"a", "b", "c", "d"}, []int{1, 2, 3, 4})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rf := splitRecord(t, data)

	positional := fmt.Sprintf("[%s,%s,%s]", rf.Values, rf.Keys, rf.Function)
	restored, err := DecodeJSON[string, int]([]byte(positional))
	if err != nil {
		t.Fatalf("positional decode: %v", err)
	}
	for i, k := range []string{"a", "b", "c", "d"} {
		if v, ok := restored.Get(k); !ok || v != i+1 {
			t.Errorf("restored Get(%q) = (%d, %v), want (%d, true)", k, v, ok, i+1)
		}
	}
}

// =============================================================================
// Decode error taxonomy
// =============================================================================

func TestJSONDecodeErrors(t *testing.T) {
	m := New([]string{"a", "b"}, []int{1, 2})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rf := splitRecord(t, data)

	cases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "unknown field",
			input:   fmt.Sprintf(`{"values":%s,"keys":null,"function":%s,"extra":1}`, rf.Values, rf.Function),
			wantErr: perrors.ErrUnknownField,
		},
		{
			name:    "duplicate values",
			input:   fmt.Sprintf(`{"values":%s,"values":%s,"function":%s}`, rf.Values, rf.Values, rf.Function),
			wantErr: perrors.ErrDuplicateField,
		},
		{
			name:    "duplicate function",
			input:   fmt.Sprintf(`{"values":%s,"function":%s,"function":%s}`, rf.Values, rf.Function, rf.Function),
			wantErr: perrors.ErrDuplicateField,
		},
		{
			name:    "missing values",
			input:   fmt.Sprintf(`{"keys":null,"function":%s}`, rf.Function),
			wantErr: perrors.ErrMissingField,
		},
		{
			name:    "missing function",
			input:   fmt.Sprintf(`{"values":%s,"keys":null}`, rf.Values),
			wantErr: perrors.ErrMissingField,
		},
		{
			name:    "positional missing function",
			input:   fmt.Sprintf(`[%s,null]`, rf.Values),
			wantErr: perrors.ErrMissingField,
		},
		{
			name:    "positional extra element",
			input:   fmt.Sprintf(`[%s,null,%s,1]`, rf.Values, rf.Function),
			wantErr: perrors.ErrUnknownField,
		},
		{
			name:    "invalid function bytes",
			input:   fmt.Sprintf(`{"values":%s,"keys":null,"function":"AAAA"}`, rf.Values),
			wantErr: perrors.ErrInvalidFunction,
		},
		{
			name:    "value count does not match function",
			input:   fmt.Sprintf(`{"values":[1],"keys":null,"function":%s}`, rf.Function),
			wantErr: perrors.ErrLengthMismatch,
		},
		{
			name:    "key count does not match values",
			input:   fmt.Sprintf(`{"values":%s,"keys":["a"],"function":%s}`, rf.Values, rf.Function),
			wantErr: perrors.ErrLengthMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeJSON[string, int]([]byte(tc.input))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("DecodeJSON error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// TestJSONDecodeEmptyKeys pins the discarded-keys wire form: a map encoded
// without retained keys may carry "keys": [] instead of null, and must decode
// to a working map with no keys rather than a length mismatch.
func TestJSONDecodeEmptyKeys(t *testing.T) {
	m := New([]string{"a", "b"}, []int{1, 2})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rf := splitRecord(t, data)

	in := fmt.Sprintf(`{"values":%s,"keys":[],"function":%s}`, rf.Values, rf.Function)
	restored, err := DecodeJSON[string, int]([]byte(in))
	if err != nil {
		t.Fatalf("DecodeJSON with empty keys: %v", err)
	}
	if restored.HasKeys() {
		t.Error("empty keys array should decode as discarded keys")
	}
	for i, k := range []string{"a", "b"} {
		if v, ok := restored.Get(k); !ok || v != i+1 {
			t.Errorf("restored Get(%q) = (%d, %v), want (%d, true)", k, v, ok, i+1)
		}
	}
}

func TestKeylessDecodeRejectsKeys(t *testing.T) {
	m := NewPreserveKeys([]string{"a", "b"}, []int{1, 2})
	data, err := gojson.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = DecodeKeylessJSON[string, int](data)
	if !errors.Is(err, perrors.ErrUnexpectedKeys) {
		t.Errorf("DecodeKeylessJSON error = %v, want %v", err, perrors.ErrUnexpectedKeys)
	}

	// An empty keys array is the tolerated absent-equivalent form.
	rf := splitRecord(t, data)
	empty := fmt.Sprintf(`{"values":%s,"keys":[],"function":%s}`, rf.Values, rf.Function)
	if _, err := DecodeKeylessJSON[string, int]([]byte(empty)); err != nil {
		t.Errorf("DecodeKeylessJSON with empty keys: %v", err)
	}
}
