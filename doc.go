// Package perfectmap implements immutable key→value lookup structures built
// on a minimal perfect hash function (MPHF).
//
// Given a fixed key set known at construction time, a perfectmap assigns
// every key a dense slot in [0, n) with no collisions and no wasted slots,
// and stores the values in slot order. Lookup is one hash evaluation plus
// one array index: no key comparison, no probing, no chaining.
//
// # Basic Usage
//
// Building and querying a map:
//
//	m := perfectmap.New(
//	    []string{"a", "b", "c", "d"},
//	    []int{1, 2, 3, 4},
//	)
//	v, ok := m.Get("c") // 3, true
//
// Serializing and restoring:
//
//	data, err := json.Marshal(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	restored, err := perfectmap.DecodeJSON[string, int](data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Lookup Contract
//
// Neither map variant compares a query key against the stored keys. A query
// for a key that was never part of the construction set returns whatever
// value sits in the slot the hash function maps it to; only the function's
// own rejection produces a miss. Callers that need strict membership must
// check against the retained keys of a NewPreserveKeys map themselves, or
// only query keys known to be members.
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: map.go (Map, New, FromMap), keyless.go (KeylessMap)
//   - Construction core: build.go (prehash, permutation), hasher.go
//   - Configuration: options.go (Option, With* functions)
//   - Serialization: json.go (tagged JSON record), binary.go (container format)
//   - Hash function boundary: mph/ (Function, Builder, algorithm dispatch)
//   - Default algorithm: internal/chd/ (compress-hash-displace)
//   - Element encoding: codec/ (Codec, JSON, GoJSON)
package perfectmap
