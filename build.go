package perfectmap

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/perfectmap/mph"
)

// parallelHashMin is the smallest input for which the prehash pass is worth
// fanning out across workers.
const parallelHashMin = 4096

// prehashKeys computes the 64-bit prehash of every key, in input order.
// With WithWorkers(n > 1) and a large enough input, the pass runs in
// parallel chunks.
func prehashKeys[K any](keys []K, hasher Hasher[K], seed uint64, workers int) []uint64 {
	hashes := make([]uint64, len(keys))
	if workers <= 1 || len(keys) < parallelHashMin {
		for i, k := range keys {
			hashes[i] = hasher(seed, k)
		}
		return hashes
	}

	var g errgroup.Group
	chunk := (len(keys) + workers - 1) / workers
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		g.Go(func() error {
			for i := start; i < end; i++ {
				hashes[i] = hasher(seed, keys[i])
			}
			return nil
		})
	}
	// Workers write disjoint ranges and never fail.
	_ = g.Wait()
	return hashes
}

// buildSlots is the shared construction core of both map variants: prehash
// the keys, build the perfect hash function over the prehashes, then permute
// the values (and, when keepKeys is set, the keys) into slot order.
//
// The function is a bijection from the n distinct prehashes to the n slots,
// so the permutation loop writes every slot exactly once. Duplicate input
// keys break that guarantee; which duplicate's value survives is then
// unspecified, and no runtime guard is imposed on the build path.
//
// Construction has no error channel. A key/value length mismatch is a caller
// bug and panics before any slot buffer is allocated; a function build
// failure (reachable only through duplicate or colliding prehashes) panics
// as well.
func buildSlots[K, V any](keys []K, values []V, keepKeys bool, cfg *config[K]) (mph.Function, []V, []K, Hasher[K]) {
	if len(keys) != len(values) {
		panic(fmt.Sprintf("perfectmap: length mismatch: %d keys, %d values", len(keys), len(values)))
	}
	hasher, err := cfg.hasherOrDefault()
	if err != nil {
		panic(err)
	}

	hashes := prehashKeys(keys, hasher, cfg.seed, cfg.workers)
	fn, err := cfg.builderOrDefault().Build(hashes)
	if err != nil {
		panic(fmt.Sprintf("perfectmap: building perfect hash function: %v", err))
	}

	slotValues := make([]V, len(values))
	var slotKeys []K
	if keepKeys {
		slotKeys = make([]K, len(keys))
	}
	for i, h := range hashes {
		slot, ok := fn.Evaluate(h)
		if !ok || slot >= uint64(len(slotValues)) {
			panic("perfectmap: perfect hash function rejected a construction key")
		}
		slotValues[slot] = values[i]
		if keepKeys {
			slotKeys[slot] = keys[i]
		}
	}
	return fn, slotValues, slotKeys, hasher
}

// lookupSlot is the shared read path: one hash evaluation plus one bounds
// check. No key comparison happens here, for either map variant.
func lookupSlot[K, V any](fn mph.Function, values []V, hasher Hasher[K], seed uint64, key K) (V, bool) {
	slot, ok := fn.Evaluate(hasher(seed, key))
	if !ok || slot >= uint64(len(values)) {
		var zero V
		return zero, false
	}
	return values[slot], true
}
