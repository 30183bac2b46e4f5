package perfectmap

import (
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"

	intbits "github.com/tamirms/perfectmap/internal/bits"
)

// Hasher converts a key into the 64-bit prehash fed to the perfect hash
// function. A Hasher must be deterministic: the same seed and key always
// produce the same prehash, across processes, or serialized maps will not
// decode to equivalent maps.
type Hasher[K any] func(seed uint64, key K) uint64

// Integer matches any built-in integer kind.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// StringHasher returns the default Hasher for string keys, backed by
// seeded xxHash3.
func StringHasher[K ~string]() Hasher[K] {
	return func(seed uint64, key K) uint64 {
		return xxh3.HashStringSeed(string(key), seed)
	}
}

// BytesHasher returns the default Hasher for byte slice keys.
func BytesHasher[K ~[]byte]() Hasher[K] {
	return func(seed uint64, key K) uint64 {
		return hashBytes(seed, key)
	}
}

// IntHasher returns the default Hasher for integer keys.
func IntHasher[K Integer]() Hasher[K] {
	return func(seed uint64, key K) uint64 {
		return hashUint(seed, uint64(key))
	}
}

func hashBytes(seed uint64, b []byte) uint64 {
	return intbits.Mix64(xxhash.Sum64(b) ^ intbits.Mix64(seed))
}

func hashUint(seed uint64, v uint64) uint64 {
	return intbits.Mix64(v ^ intbits.Mix64(seed))
}

// defaultHasher returns the Hasher for K's kind, or nil when K has no
// default and WithHasher is required. Named string, integer and byte slice
// types are handled through reflection; the exact built-in types take the
// direct path.
func defaultHasher[K any]() Hasher[K] {
	t := reflect.TypeFor[K]()
	switch t.Kind() {
	case reflect.String:
		if t == reflect.TypeFor[string]() {
			return func(seed uint64, key K) uint64 {
				return xxh3.HashStringSeed(any(key).(string), seed)
			}
		}
		return func(seed uint64, key K) uint64 {
			return xxh3.HashStringSeed(reflect.ValueOf(key).String(), seed)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(seed uint64, key K) uint64 {
			return hashUint(seed, uint64(reflect.ValueOf(key).Int()))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(seed uint64, key K) uint64 {
			return hashUint(seed, reflect.ValueOf(key).Uint())
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if t == reflect.TypeFor[[]byte]() {
				return func(seed uint64, key K) uint64 {
					return hashBytes(seed, any(key).([]byte))
				}
			}
			return func(seed uint64, key K) uint64 {
				return hashBytes(seed, reflect.ValueOf(key).Bytes())
			}
		}
	}
	return nil
}
