package perfectmap

import (
	"iter"
	"slices"

	"github.com/tamirms/perfectmap/mph"
)

// Map is an immutable perfect-hash map that can optionally retain its keys.
//
// Every construction key occupies exactly one slot of a dense [0, n) value
// array; lookup is one hash evaluation plus one array index, with no probing
// and no chaining. A Map is immutable after construction and safe for
// unsynchronized concurrent reads. "Updating" a Map means building a new one.
//
// Keys are retained only when built with NewPreserveKeys; the default
// construction discards them after the permutation pass. Retained keys exist
// for introspection and serialization, not for lookup validation: see Get.
type Map[K, V any] struct {
	fn     mph.Function
	values []V
	keys   []K // slot-ordered original keys, nil unless preserved
	hasher Hasher[K]
	seed   uint64
}

// New builds a Map from aligned key and value slices, discarding the keys
// after construction. It panics if the slices differ in length, before any
// slot buffer is allocated. Supplying duplicate keys is unsupported: the map
// builds (or panics in the perfect hash builder), and if it builds, which
// duplicate's value survives is unspecified.
func New[K, V any](keys []K, values []V, opts ...Option[K]) *Map[K, V] {
	cfg := newConfig(opts...)
	fn, slotValues, _, hasher := buildSlots(keys, values, false, cfg)
	return &Map[K, V]{fn: fn, values: slotValues, hasher: hasher, seed: cfg.seed}
}

// NewPreserveKeys is New, but the keys are permuted alongside the values so
// that Keys() yields the original key stored in each slot.
func NewPreserveKeys[K, V any](keys []K, values []V, opts ...Option[K]) *Map[K, V] {
	cfg := newConfig(opts...)
	fn, slotValues, slotKeys, hasher := buildSlots(keys, values, true, cfg)
	return &Map[K, V]{fn: fn, values: slotValues, keys: slotKeys, hasher: hasher, seed: cfg.seed}
}

// NewFrom builds a Map from values in a different source representation,
// converting each element with conv. It panics on a length mismatch before
// converting or allocating anything.
func NewFrom[K, U, V any](keys []K, src []U, conv func(U) V, opts ...Option[K]) *Map[K, V] {
	if len(keys) != len(src) {
		panic("perfectmap: length mismatch between keys and values")
	}
	values := make([]V, len(src))
	for i, u := range src {
		values[i] = conv(u)
	}
	return New(keys, values, opts...)
}

// FromMap builds a Map from an ordinary Go map. Iteration order of src is
// irrelevant: the perfect hash function fixes the slot of every key.
func FromMap[K comparable, V any](src map[K]V, opts ...Option[K]) *Map[K, V] {
	keys := make([]K, 0, len(src))
	values := make([]V, 0, len(src))
	for k, v := range src {
		keys = append(keys, k)
		values = append(values, v)
	}
	return New(keys, values, opts...)
}

// FromInvertedMap builds a Map from a source map whose keys become the
// values and whose values become the keys: FromInvertedMap(map[V]K) yields a
// Map[K, V] with Get(k) returning the source key that mapped to k.
func FromInvertedMap[K any, V comparable](src map[V]K, opts ...Option[K]) *Map[K, V] {
	keys := make([]K, 0, len(src))
	values := make([]V, 0, len(src))
	for v, k := range src {
		keys = append(keys, k)
		values = append(values, v)
	}
	return New(keys, values, opts...)
}

// Get returns the value stored in the slot the query key hashes to.
//
// The boolean is false only when the perfect hash function itself declines
// the key. Get performs no comparison against the stored keys, even when the
// map retained them, and so is behaviorally identical to GetUnchecked:
// querying a key that was not part of the construction set returns some
// slot's value, not a reliable miss. Callers needing strict membership must
// compare against Keys() themselves or only query construction-set keys.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return lookupSlot(m.fn, m.values, m.hasher, m.seed, key)
}

// GetUnchecked returns the value stored in the slot the query key hashes to.
// If key was not in the construction set, this may return an arbitrary
// value.
func (m *Map[K, V]) GetUnchecked(key K) (V, bool) {
	return lookupSlot(m.fn, m.values, m.hasher, m.seed, key)
}

// At returns the value associated with key.
//
// At panics if the perfect hash function declines the key. It is sugar over
// Get for callers that treat absence as a programming error.
func (m *Map[K, V]) At(key K) V {
	v, ok := m.Get(key)
	if !ok {
		panic("no entry found for key")
	}
	return v
}

// Len returns the number of slots, equal to the number of construction keys.
func (m *Map[K, V]) Len() int {
	return len(m.values)
}

// Values iterates the values in slot order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return slices.Values(m.values)
}

// Keys iterates the retained keys in slot order. The sequence is empty
// unless the map was built with NewPreserveKeys (or decoded from a
// serialized map that carried keys).
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return slices.Values(m.keys)
}

// HasKeys reports whether the map retained its keys.
func (m *Map[K, V]) HasKeys() bool {
	return m.keys != nil
}

// Function exposes the underlying perfect hash function.
func (m *Map[K, V]) Function() mph.Function {
	return m.fn
}
