package perfectmap

import (
	"iter"
	"slices"

	"github.com/tamirms/perfectmap/mph"
)

// KeylessMap is the key-free variant of Map: it stores only the permuted
// value array and the perfect hash function. It cannot reconstruct or verify
// membership; querying a key outside the construction set returns some
// slot's value unless the function itself declines the key.
//
// Like Map, a KeylessMap is immutable after construction and safe for
// unsynchronized concurrent reads.
type KeylessMap[K, V any] struct {
	fn     mph.Function
	values []V
	hasher Hasher[K]
	seed   uint64
}

// NewKeyless builds a KeylessMap from aligned key and value slices. It
// panics on a length mismatch before any slot buffer is allocated. Duplicate
// keys are unsupported, as for New.
func NewKeyless[K, V any](keys []K, values []V, opts ...Option[K]) *KeylessMap[K, V] {
	cfg := newConfig(opts...)
	fn, slotValues, _, hasher := buildSlots(keys, values, false, cfg)
	return &KeylessMap[K, V]{fn: fn, values: slotValues, hasher: hasher, seed: cfg.seed}
}

// NewKeylessFrom builds a KeylessMap from values in a different source
// representation, converting each element with conv.
func NewKeylessFrom[K, U, V any](keys []K, src []U, conv func(U) V, opts ...Option[K]) *KeylessMap[K, V] {
	if len(keys) != len(src) {
		panic("perfectmap: length mismatch between keys and values")
	}
	values := make([]V, len(src))
	for i, u := range src {
		values[i] = conv(u)
	}
	return NewKeyless(keys, values, opts...)
}

// KeylessFromMap builds a KeylessMap from an ordinary Go map, in arbitrary
// iteration order.
func KeylessFromMap[K comparable, V any](src map[K]V, opts ...Option[K]) *KeylessMap[K, V] {
	keys := make([]K, 0, len(src))
	values := make([]V, 0, len(src))
	for k, v := range src {
		keys = append(keys, k)
		values = append(values, v)
	}
	return NewKeyless(keys, values, opts...)
}

// KeylessFromInvertedMap builds a KeylessMap from a source map whose keys
// become the values and whose values become the keys.
func KeylessFromInvertedMap[K any, V comparable](src map[V]K, opts ...Option[K]) *KeylessMap[K, V] {
	keys := make([]K, 0, len(src))
	values := make([]V, 0, len(src))
	for v, k := range src {
		keys = append(keys, k)
		values = append(values, v)
	}
	return NewKeyless(keys, values, opts...)
}

// Get returns the value stored in the slot the query key hashes to. The
// boolean is false only when the perfect hash function itself declines the
// key; there are no retained keys to compare against, so Get is behaviorally
// identical to GetUnchecked.
func (m *KeylessMap[K, V]) Get(key K) (V, bool) {
	return lookupSlot(m.fn, m.values, m.hasher, m.seed, key)
}

// GetUnchecked returns the value stored in the slot the query key hashes to.
// If key was not in the construction set, this may return an arbitrary
// value.
func (m *KeylessMap[K, V]) GetUnchecked(key K) (V, bool) {
	return lookupSlot(m.fn, m.values, m.hasher, m.seed, key)
}

// At returns the value associated with key, panicking if the perfect hash
// function declines it.
func (m *KeylessMap[K, V]) At(key K) V {
	v, ok := m.Get(key)
	if !ok {
		panic("no entry found for key")
	}
	return v
}

// Len returns the number of slots, equal to the number of construction keys.
func (m *KeylessMap[K, V]) Len() int {
	return len(m.values)
}

// Values iterates the values in slot order.
func (m *KeylessMap[K, V]) Values() iter.Seq[V] {
	return slices.Values(m.values)
}

// Function exposes the underlying perfect hash function.
func (m *KeylessMap[K, V]) Function() mph.Function {
	return m.fn
}
