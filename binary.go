package perfectmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/tamirms/perfectmap/codec"
	perrors "github.com/tamirms/perfectmap/errors"
	"github.com/tamirms/perfectmap/mph"
)

// Binary container format. Everything is little-endian.
//
//	Offset  Size  Field     Notes
//	0       4     Magic     0x50414D50 ("PMAP")
//	4       2     Version   0x0001
//	6       1     Flags     bit 0: keys section present
//	7       1     Reserved  zero
//	8       8     Count     number of slots
//	16      8     Seed      construction seed
//	24      8     Reserved  zero
//
// The header is followed by the values section (Count length-prefixed codec
// blobs), the keys section if flagged (same shape), and the function section
// (one length-prefixed framed function blob). The container ends with an
// 8-byte xxHash64 of everything before the footer.
const (
	containerMagic      = uint32(0x50414D50)
	containerVersion    = uint16(0x0001)
	containerHeaderSize = 32
	containerFooterSize = 8

	flagHasKeys = uint8(1 << 0)
)

// EncodeBinary writes the map to w in the binary container format, encoding
// each key and value with c (nil means codec.Default).
func (m *Map[K, V]) EncodeBinary(w io.Writer, c codec.Codec) error {
	return encodeContainer(w, c, m.values, m.keys, m.keys != nil, m.fn, m.seed)
}

// EncodeBinary writes the map to w in the binary container format. The keys
// section is always absent.
func (m *KeylessMap[K, V]) EncodeBinary(w io.Writer, c codec.Codec) error {
	return encodeContainer[K](w, c, m.values, nil, false, m.fn, m.seed)
}

// DecodeBinary reconstructs a Map from the binary container format. c must
// match the codec used to encode (nil means codec.Default); WithHasher must
// repeat the construction hasher, if any.
func DecodeBinary[K, V any](r io.Reader, c codec.Codec, opts ...Option[K]) (*Map[K, V], error) {
	if c == nil {
		c = codec.Default
	}
	cont, err := parseContainer(r)
	if err != nil {
		return nil, err
	}
	fn, err := mph.Unmarshal(cont.function)
	if err != nil {
		return nil, err
	}
	if fn.Len() != len(cont.values) {
		return nil, fmt.Errorf("%w: %d values, function has %d slots", perrors.ErrLengthMismatch, len(cont.values), fn.Len())
	}

	values, err := decodeSection[V](c, cont.values)
	if err != nil {
		return nil, fmt.Errorf("perfectmap: decoding values: %w", err)
	}
	var keys []K
	if cont.flags&flagHasKeys != 0 {
		keys, err = decodeSection[K](c, cont.keys)
		if err != nil {
			return nil, fmt.Errorf("perfectmap: decoding keys: %w", err)
		}
	}

	cfg := newConfig(opts...)
	hasher, err := cfg.hasherOrDefault()
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{fn: fn, values: values, keys: keys, hasher: hasher, seed: cont.seed}, nil
}

// DecodeKeylessBinary reconstructs a KeylessMap from the binary container
// format. Containers carrying a keys section are rejected.
func DecodeKeylessBinary[K, V any](r io.Reader, c codec.Codec, opts ...Option[K]) (*KeylessMap[K, V], error) {
	if c == nil {
		c = codec.Default
	}
	cont, err := parseContainer(r)
	if err != nil {
		return nil, err
	}
	if cont.flags&flagHasKeys != 0 {
		return nil, fmt.Errorf("%w: container has a keys section", perrors.ErrUnexpectedKeys)
	}
	fn, err := mph.Unmarshal(cont.function)
	if err != nil {
		return nil, err
	}
	if fn.Len() != len(cont.values) {
		return nil, fmt.Errorf("%w: %d values, function has %d slots", perrors.ErrLengthMismatch, len(cont.values), fn.Len())
	}

	values, err := decodeSection[V](c, cont.values)
	if err != nil {
		return nil, fmt.Errorf("perfectmap: decoding values: %w", err)
	}

	cfg := newConfig(opts...)
	hasher, err := cfg.hasherOrDefault()
	if err != nil {
		return nil, err
	}
	return &KeylessMap[K, V]{fn: fn, values: values, hasher: hasher, seed: cont.seed}, nil
}

func encodeContainer[K, V any](w io.Writer, c codec.Codec, values []V, keys []K, hasKeys bool, fn mph.Function, seed uint64) error {
	if c == nil {
		c = codec.Default
	}

	var body bytes.Buffer
	hdr := make([]byte, containerHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], containerMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], containerVersion)
	if hasKeys {
		hdr[6] = flagHasKeys
	}
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(values)))
	binary.LittleEndian.PutUint64(hdr[16:24], seed)
	body.Write(hdr)

	if err := encodeSection(&body, c, values); err != nil {
		return fmt.Errorf("perfectmap: encoding values: %w", err)
	}
	if hasKeys {
		if err := encodeSection(&body, c, keys); err != nil {
			return fmt.Errorf("perfectmap: encoding keys: %w", err)
		}
	}

	fb, err := mph.Marshal(fn)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(fb)))
	body.Write(lenBuf[:])
	body.Write(fb)

	var footer [containerFooterSize]byte
	binary.LittleEndian.PutUint64(footer[:], xxhash.Sum64(body.Bytes()))

	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(footer[:])
	return err
}

func encodeSection[T any](buf *bytes.Buffer, c codec.Codec, elems []T) error {
	var lenBuf [4]byte
	for i := range elems {
		b, err := c.Marshal(elems[i])
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
		buf.Write(lenBuf[:])
		buf.Write(b)
	}
	return nil
}

func decodeSection[T any](c codec.Codec, raws [][]byte) ([]T, error) {
	elems := make([]T, len(raws))
	for i, raw := range raws {
		if err := c.Unmarshal(raw, &elems[i]); err != nil {
			return nil, err
		}
	}
	return elems, nil
}

// container holds the raw, checksum-verified sections of a parsed container.
type container struct {
	flags    uint8
	seed     uint64
	values   [][]byte
	keys     [][]byte
	function []byte
}

func parseContainer(r io.Reader) (*container, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("perfectmap: reading container: %w", err)
	}
	if len(data) < containerHeaderSize+containerFooterSize {
		return nil, perrors.ErrTruncated
	}

	body := data[:len(data)-containerFooterSize]
	want := binary.LittleEndian.Uint64(data[len(data)-containerFooterSize:])
	if got := xxhash.Sum64(body); got != want {
		return nil, fmt.Errorf("%w: got 0x%016x, want 0x%016x", perrors.ErrChecksum, got, want)
	}

	if binary.LittleEndian.Uint32(body[0:4]) != containerMagic {
		return nil, perrors.ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(body[4:6]); v != containerVersion {
		return nil, fmt.Errorf("%w: %d", perrors.ErrInvalidVersion, v)
	}
	cont := &container{
		flags: body[6],
		seed:  binary.LittleEndian.Uint64(body[16:24]),
	}
	count := binary.LittleEndian.Uint64(body[8:16])
	if count > uint64(len(body)) { // each element costs at least a length prefix
		return nil, perrors.ErrTruncated
	}

	cur := body[containerHeaderSize:]
	cont.values, cur, err = parseSection(cur, int(count))
	if err != nil {
		return nil, err
	}
	if cont.flags&flagHasKeys != 0 {
		cont.keys, cur, err = parseSection(cur, int(count))
		if err != nil {
			return nil, err
		}
	}
	fnSection, cur, err := parseSection(cur, 1)
	if err != nil {
		return nil, err
	}
	cont.function = fnSection[0]
	if len(cur) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", perrors.ErrTruncated, len(cur))
	}
	return cont, nil
}

// parseSection slices count length-prefixed blobs off cur, returning the
// blobs and the remainder.
func parseSection(cur []byte, count int) ([][]byte, []byte, error) {
	blobs := make([][]byte, count)
	for i := 0; i < count; i++ {
		if len(cur) < 4 {
			return nil, nil, perrors.ErrTruncated
		}
		n := binary.LittleEndian.Uint32(cur)
		cur = cur[4:]
		if uint64(len(cur)) < uint64(n) {
			return nil, nil, perrors.ErrTruncated
		}
		blobs[i] = cur[:n]
		cur = cur[n:]
	}
	return blobs, cur, nil
}
