// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange64 maps a 64-bit hash uniformly to [0, n).
// Uses the "fastrange" technique: multiply and take high bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange64(hash uint64, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, n)
	return hi
}

// Mix64 applies the splitmix64 finalizer to x, producing a well-distributed
// 64-bit value. Every input bit affects every output bit.
func Mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
