// Package mph defines the perfect hash function boundary used by perfectmap.
//
// The map packages never depend on a concrete minimal perfect hash algorithm.
// They consume a Function built by a Builder, and serialize it through Write
// and Read, which frame the function bytes with a 2-byte algorithm tag so the
// concrete implementation can be recovered on decode. The default Builder is
// backed by the CHD construction in internal/chd.
package mph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	perrors "github.com/tamirms/perfectmap/errors"
	"github.com/tamirms/perfectmap/internal/chd"
)

// DefaultLevelSize is the compactness knob of the default builder, expressed
// as slots per hundred buckets. At 300, displacement buckets hold three keys
// on average, a moderate space/build-time tradeoff.
const DefaultLevelSize = 300

// AlgorithmID identifies the perfect hash algorithm of a serialized Function.
// It is the first field of the wire framing written by Write.
type AlgorithmID uint16

const (
	// AlgoCHD is the compress-hash-displace construction in internal/chd.
	AlgoCHD AlgorithmID = 0
)

// String returns the algorithm name.
func (a AlgorithmID) String() string {
	switch a {
	case AlgoCHD:
		return "chd"
	default:
		return "unknown"
	}
}

// Function is an immutable minimal perfect hash function over the 64-bit
// prehashes of n keys.
//
// Evaluate returns a slot in [0, n) for every prehash the function was built
// from, bijectively. For prehashes outside the construction set it returns
// either an arbitrary in-range slot or ok=false; only ok=false is a reliable
// rejection.
//
// Implementations must be safe for concurrent use after construction.
type Function interface {
	// Evaluate maps a key prehash to its slot.
	Evaluate(hash uint64) (slot uint64, ok bool)

	// Len returns the number of slots.
	Len() int

	// Seed returns the base seed the function was built with. Callers that
	// prehash keys externally must reuse this seed after deserialization.
	Seed() uint64

	// SerializedSize returns the exact byte length WriteTo produces.
	SerializedSize() int

	// WriteTo serializes the function body, without algorithm framing.
	WriteTo(w io.Writer) (int64, error)
}

// Builder constructs a Function from the prehashes of a key set.
// The prehashes must be distinct.
type Builder interface {
	Build(hashes []uint64) (Function, error)
}

// Config tunes the default builder.
type Config struct {
	// LevelSize is the compactness target in slots per hundred buckets.
	// Zero means DefaultLevelSize.
	LevelSize int

	// Seed makes construction deterministic and is recoverable from the
	// built Function via Seed().
	Seed uint64
}

// NewBuilder returns the default CHD-backed Builder.
func NewBuilder(cfg Config) Builder {
	if cfg.LevelSize <= 0 {
		cfg.LevelSize = DefaultLevelSize
	}
	return &chdBuilder{cfg: cfg}
}

type chdBuilder struct {
	cfg Config
}

func (b *chdBuilder) Build(hashes []uint64) (Function, error) {
	// bucket count m = n * 100/LevelSize, at least one bucket per table.
	m := uint64(len(hashes)) * 100 / uint64(b.cfg.LevelSize)
	if m == 0 {
		m = 1
	}
	return chd.Build(hashes, m, b.cfg.Seed)
}

// SerializedSize returns the framed byte length of f as written by Write.
func SerializedSize(f Function) int {
	return 2 + f.SerializedSize()
}

// Write serializes f with its algorithm tag. Functions of unknown concrete
// type cannot be framed and are rejected.
func Write(w io.Writer, f Function) error {
	algo, err := algorithmOf(f)
	if err != nil {
		return err
	}
	var tag [2]byte
	binary.LittleEndian.PutUint16(tag[:], uint16(algo))
	if _, err := w.Write(tag[:]); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// Read deserializes a Function previously written with Write, dispatching on
// the algorithm tag.
func Read(r io.Reader) (Function, error) {
	var tag [2]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, fmt.Errorf("%w: short algorithm tag: %v", perrors.ErrInvalidFunction, err)
	}
	algo := AlgorithmID(binary.LittleEndian.Uint16(tag[:]))
	switch algo {
	case AlgoCHD:
		return chd.Read(r)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %d", perrors.ErrInvalidFunction, algo)
	}
}

// Marshal returns the framed serialization of f as a byte slice.
func Marshal(f Function) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SerializedSize(f)))
	if err := Write(buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes a Function from the framed byte form.
func Unmarshal(data []byte) (Function, error) {
	return Read(bytes.NewReader(data))
}

func algorithmOf(f Function) (AlgorithmID, error) {
	switch f.(type) {
	case *chd.Table:
		return AlgoCHD, nil
	default:
		return 0, fmt.Errorf("%w: unregistered function type %T", perrors.ErrInvalidFunction, f)
	}
}
