package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// TestFastRange64Monotonicity verifies that for a fixed n,
// FastRange64 is monotone: h1 < h2 implies FastRange64(h1,n) <= FastRange64(h2,n).
func TestFastRange64Monotonicity(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		n := rng.Uint64N(math.MaxUint64-1) + 1
		h1 := rng.Uint64()
		h2 := rng.Uint64()
		if h1 > h2 {
			h1, h2 = h2, h1
		}

		r1 := FastRange64(h1, n)
		r2 := FastRange64(h2, n)
		if r1 > r2 {
			t.Fatalf("iter %d: monotonicity violated: FastRange64(0x%X, %d)=%d > FastRange64(0x%X, %d)=%d",
				i, h1, n, r1, h2, n, r2)
		}
	}
}

// TestFastRange64Range verifies that the result is always in [0, n).
func TestFastRange64Range(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		n := rng.Uint64N(math.MaxUint64-1) + 1
		h := rng.Uint64()

		got := FastRange64(h, n)
		if got >= n {
			t.Fatalf("iter %d: FastRange64(0x%X, %d)=%d >= %d",
				i, h, n, got, n)
		}
	}
}

// TestFastRange64EdgeCases tests deterministic edge cases.
func TestFastRange64EdgeCases(t *testing.T) {
	// n=0 always returns 0
	for _, h := range []uint64{0, 1, math.MaxUint64, 0xDEADBEEF} {
		if got := FastRange64(h, 0); got != 0 {
			t.Errorf("FastRange64(0x%X, 0) = %d, want 0", h, got)
		}
	}

	// n=1 always returns 0
	for _, h := range []uint64{0, 1, math.MaxUint64, 0xDEADBEEF, math.MaxUint64 / 2} {
		if got := FastRange64(h, 1); got != 0 {
			t.Errorf("FastRange64(0x%X, 1) = %d, want 0", h, got)
		}
	}

	// h=0 always maps to 0 for any n
	for n := uint64(1); n <= 100; n++ {
		if got := FastRange64(0, n); got != 0 {
			t.Errorf("FastRange64(0, %d) = %d, want 0", n, got)
		}
	}

	// h=MaxUint64 maps to n-1 for any n >= 2
	for n := uint64(2); n <= 100; n++ {
		got := FastRange64(math.MaxUint64, n)
		if got != n-1 {
			t.Errorf("FastRange64(MaxUint64, %d) = %d, want %d", n, got, n-1)
		}
	}
}

// TestMix64Bijective spot-checks that Mix64 does not collide over a random
// sample (it is an invertible permutation of uint64).
func TestMix64Bijective(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 100000

	seen := make(map[uint64]uint64, iterations)
	for i := 0; i < iterations; i++ {
		x := rng.Uint64()
		y := Mix64(x)
		if prev, ok := seen[y]; ok && prev != x {
			t.Fatalf("Mix64 collision: Mix64(0x%X) == Mix64(0x%X) == 0x%X", prev, x, y)
		}
		seen[y] = x
	}
}

// TestMix64Deterministic verifies stability of the finalizer across calls.
func TestMix64Deterministic(t *testing.T) {
	inputs := []uint64{0, 1, math.MaxUint64, 0x1234567890ABCDEF}
	for _, x := range inputs {
		if a, b := Mix64(x), Mix64(x); a != b {
			t.Errorf("Mix64(0x%X) not deterministic: 0x%X vs 0x%X", x, a, b)
		}
	}
	// Mix64(0) must not be a fixed point mapping everything low.
	if Mix64(0) == 0 && Mix64(1) == 1 {
		t.Error("Mix64 looks like identity")
	}
}
