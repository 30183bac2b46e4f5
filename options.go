package perfectmap

import (
	"fmt"

	"github.com/tamirms/perfectmap/mph"
)

// defaultSeed is the construction seed used when WithSeed is not given.
const defaultSeed = 0x1234567890abcdef

// Option is a functional option for configuring map construction.
type Option[K any] func(*config[K])

type config[K any] struct {
	hasher  Hasher[K]
	seed    uint64
	workers int
	builder mph.Builder
}

func newConfig[K any](opts ...Option[K]) *config[K] {
	c := &config[K]{seed: defaultSeed}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// hasherOrDefault resolves the configured hasher, falling back to the
// default for K's kind.
func (c *config[K]) hasherOrDefault() (Hasher[K], error) {
	if c.hasher != nil {
		return c.hasher, nil
	}
	h := defaultHasher[K]()
	if h == nil {
		var zero K
		return nil, fmt.Errorf("perfectmap: no default hasher for key type %T, use WithHasher", zero)
	}
	return h, nil
}

// builderOrDefault resolves the configured perfect hash builder, falling
// back to the default CHD builder seeded with the construction seed.
func (c *config[K]) builderOrDefault() mph.Builder {
	if c.builder != nil {
		return c.builder
	}
	return mph.NewBuilder(mph.Config{Seed: c.seed})
}

// WithHasher sets the key prehash function. Maps built with a custom hasher
// must be decoded with the same hasher.
func WithHasher[K any](h Hasher[K]) Option[K] {
	return func(c *config[K]) {
		c.hasher = h
	}
}

// WithSeed sets the construction seed. The seed flows into both the key
// prehash and the perfect hash function, and is recovered from the function
// on decode.
func WithSeed[K any](seed uint64) Option[K] {
	return func(c *config[K]) {
		c.seed = seed
	}
}

// WithWorkers sets the number of parallel workers for the key prehash pass.
// Values below two keep the pass single-threaded.
func WithWorkers[K any](n int) Option[K] {
	return func(c *config[K]) {
		c.workers = n
	}
}

// WithBuilder injects a custom perfect hash function builder. The builder's
// functions must report the construction seed via Seed() for codec
// round-trips to reproduce the key prehash chain.
func WithBuilder[K any](b mph.Builder) Option[K] {
	return func(c *config[K]) {
		c.builder = b
	}
}
