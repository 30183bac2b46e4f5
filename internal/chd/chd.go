// Package chd implements a minimal perfect hash function over 64-bit key
// hashes using the compress, hash and displace (CHD) construction.
//
// See http://cmph.sourceforge.net/papers/esa09.pdf for details.
//
// Keys enter as prehashed uint64 values. The construction groups them into
// buckets and searches, largest bucket first, for a per-bucket displacement
// seed under which every key in the bucket lands in a distinct free slot of
// the [0, n) table. The result is a bijection from the n input hashes to the
// n slots: evaluation is two hashes and two fastrange reductions, with no
// stored keys and no probing.
package chd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/spaolacci/murmur3"

	perrors "github.com/tamirms/perfectmap/errors"
	intbits "github.com/tamirms/perfectmap/internal/bits"
)

const (
	// maxDisplacementSeed bounds the per-bucket seed search. The expected
	// number of trials for the last singleton bucket of an n-key table is
	// about n, so this supports tables well past a million keys.
	maxDisplacementSeed = uint32(1) << 20

	// maxSaltAttempts bounds how many global salts are tried before the
	// build is abandoned.
	maxSaltAttempts = 16

	// unassigned marks a bucket that received no keys. Evaluating a hash
	// that routes to such a bucket reports a miss.
	unassigned = ^uint32(0)

	// serializedHeaderSize is the fixed prefix of the serialized table:
	// seed, salt, n and bucket count, each 8 bytes little-endian.
	serializedHeaderSize = 32

	// seedReadChunk bounds the per-iteration read during deserialization.
	// The header's bucket count is untrusted, so the seed array grows as
	// bytes actually arrive instead of being allocated up front.
	seedReadChunk = 1 << 16
)

// Table is an immutable minimal perfect hash function over n key hashes.
// Safe for concurrent use once built.
type Table struct {
	seed  uint64   // configured base seed, reported via Seed
	salt  uint64   // effective salt after retry attempts
	n     uint64   // number of slots (== number of keys)
	seeds []uint32 // per-bucket displacement seed, unassigned if empty
}

// Build constructs a Table over the given key hashes using m displacement
// buckets. The hashes must be distinct. seed makes the construction
// deterministic: the same hashes, m and seed always produce the same table.
func Build(hashes []uint64, m uint64, seed uint64) (*Table, error) {
	n := uint64(len(hashes))
	if n == 0 {
		return &Table{seed: seed, salt: intbits.Mix64(seed), n: 0}, nil
	}
	if m == 0 {
		m = 1
	}
	if err := checkDistinct(hashes); err != nil {
		return nil, err
	}

	for attempt := uint64(0); attempt < maxSaltAttempts; attempt++ {
		salt := intbits.Mix64(seed + attempt*0x9e3779b97f4a7c15)
		if seeds, ok := tryBuild(hashes, m, salt); ok {
			return &Table{seed: seed, salt: salt, n: n, seeds: seeds}, nil
		}
	}
	return nil, fmt.Errorf("%w: %d keys, %d buckets", perrors.ErrSeedSearchFailed, n, m)
}

func checkDistinct(hashes []uint64) error {
	sorted := slices.Clone(hashes)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return fmt.Errorf("%w: 0x%016x", perrors.ErrDuplicateHash, sorted[i])
		}
	}
	return nil
}

// tryBuild attempts the displacement search under a single global salt.
// It returns ok=false if any bucket exhausts the seed space, in which case
// the caller retries with a different salt.
func tryBuild(hashes []uint64, m uint64, salt uint64) ([]uint32, bool) {
	n := uint64(len(hashes))

	buckets := make([][]uint64, m)
	for _, h := range hashes {
		b := bucketIndex(h, salt, m)
		buckets[b] = append(buckets[b], h)
	}

	// Process buckets in decreasing order of occupancy: large buckets are
	// the hardest to place and must see the emptiest table.
	order := make([]uint64, m)
	for i := range order {
		order[i] = uint64(i)
	}
	slices.SortFunc(order, func(a, b uint64) int {
		return len(buckets[b]) - len(buckets[a])
	})

	occupied := make([]bool, n)
	seeds := make([]uint32, m)
	for i := range seeds {
		seeds[i] = unassigned
	}

	trial := make([]uint64, 0, 16)
	for _, b := range order {
		keys := buckets[b]
		if len(keys) == 0 {
			continue
		}

	nextSeed:
		for s := uint32(1); s < maxDisplacementSeed; s++ {
			trial = trial[:0]
			for _, h := range keys {
				slot := slotIndex(h, salt, s, n)
				if occupied[slot] || slices.Contains(trial, slot) {
					continue nextSeed
				}
				trial = append(trial, slot)
			}
			for _, slot := range trial {
				occupied[slot] = true
			}
			seeds[b] = s
			break
		}
		if seeds[b] == unassigned {
			return nil, false
		}
	}
	return seeds, true
}

func bucketIndex(hash, salt, m uint64) uint64 {
	return intbits.FastRange64(intbits.Mix64(hash^salt), m)
}

func slotIndex(hash, salt uint64, seed uint32, n uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], intbits.Mix64(hash^salt))
	return intbits.FastRange64(murmur3.Sum64WithSeed(buf[:], seed), n)
}

// Evaluate maps a key hash to its slot in [0, n). The boolean is false only
// when the hash routes to a bucket that received no keys during construction;
// for hashes outside the construction set that do route to an assigned
// bucket, Evaluate returns an arbitrary in-range slot.
func (t *Table) Evaluate(hash uint64) (uint64, bool) {
	if t.n == 0 {
		return 0, false
	}
	b := bucketIndex(hash, t.salt, uint64(len(t.seeds)))
	s := t.seeds[b]
	if s == unassigned {
		return 0, false
	}
	return slotIndex(hash, t.salt, s, t.n), true
}

// Len returns the number of slots, equal to the number of keys the table
// was built from.
func (t *Table) Len() int {
	return int(t.n)
}

// Seed returns the base seed the table was configured with. Callers that
// prehash keys externally use this to rebuild the same hash chain after
// deserialization.
func (t *Table) Seed() uint64 {
	return t.seed
}

// SerializedSize returns the exact number of bytes WriteTo produces.
func (t *Table) SerializedSize() int {
	return serializedHeaderSize + 4*len(t.seeds)
}

// WriteTo serializes the table in little-endian form: a 32-byte header
// (seed, salt, n, bucket count) followed by the displacement seed array.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, t.SerializedSize())
	binary.LittleEndian.PutUint64(buf[0:8], t.seed)
	binary.LittleEndian.PutUint64(buf[8:16], t.salt)
	binary.LittleEndian.PutUint64(buf[16:24], t.n)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(len(t.seeds)))
	for i, s := range t.seeds {
		binary.LittleEndian.PutUint32(buf[serializedHeaderSize+4*i:], s)
	}
	nw, err := w.Write(buf)
	return int64(nw), err
}

// Read deserializes a table previously written with WriteTo.
func Read(r io.Reader) (*Table, error) {
	var hdr [serializedHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", perrors.ErrInvalidFunction, err)
	}
	t := &Table{
		seed: binary.LittleEndian.Uint64(hdr[0:8]),
		salt: binary.LittleEndian.Uint64(hdr[8:16]),
		n:    binary.LittleEndian.Uint64(hdr[16:24]),
	}
	m := binary.LittleEndian.Uint64(hdr[24:32])
	if t.n > 0 && m == 0 {
		return nil, fmt.Errorf("%w: %d slots but no buckets", perrors.ErrInvalidFunction, t.n)
	}
	if m > math.MaxInt32 {
		return nil, fmt.Errorf("%w: implausible bucket count %d", perrors.ErrInvalidFunction, m)
	}
	if m > 0 {
		t.seeds = make([]uint32, 0, min(m, seedReadChunk/4))
		buf := make([]byte, min(4*m, seedReadChunk))
		for remaining := 4 * m; remaining > 0; {
			chunk := buf[:min(uint64(len(buf)), remaining)]
			if _, err := io.ReadFull(r, chunk); err != nil {
				return nil, fmt.Errorf("%w: short seed array: %v", perrors.ErrInvalidFunction, err)
			}
			for i := 0; i < len(chunk); i += 4 {
				t.seeds = append(t.seeds, binary.LittleEndian.Uint32(chunk[i:]))
			}
			remaining -= uint64(len(chunk))
		}
	}
	return t, nil
}
