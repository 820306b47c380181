// Package entropy provides the single random source injected into every
// stochastic decision in the hotel: rarity draws, pair and memory picks,
// trade rolls, bot choices. Seeded sources make runs reproducible; Fixed
// lets tests force either side of a probabilistic branch.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source is a random number source. Implementations must be safe for
// concurrent use: HTTP action calls and the tick loop share one source.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Intn returns a uniform value in [0, n). n must be > 0.
	Intn(n int) int
	// Shuffle permutes n elements using swap.
	Shuffle(n int, swap func(i, j int))
}

// Rand is a mutex-guarded math/rand source.
type Rand struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded creates a reproducible source.
func NewSeeded(seed int64) *Rand {
	return &Rand{rng: mrand.New(mrand.NewSource(seed))}
}

// New creates a source seeded from crypto/rand.
func New() *Rand {
	return NewSeeded(CryptoSeed())
}

func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}

// Read fills p with random bytes so a Rand can feed ULID generation.
func (r *Rand) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Read(p)
}

// Fixed is a degenerate source for tests. Float64 always returns the value,
// Intn always returns 0 and Shuffle leaves order unchanged.
// Fixed(0) takes every "roll < p" branch; Fixed(0.99) takes none.
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }

func (f Fixed) Intn(n int) int { return 0 }

func (f Fixed) Shuffle(n int, swap func(i, j int)) {}

// Pick returns a uniformly chosen element of items. items must be non-empty.
func Pick[T any](src Source, items []T) T {
	return items[src.Intn(len(items))]
}

// Chance reports whether a roll from src lands under p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// CryptoSeed returns a seed drawn from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 42
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// CryptoFloat returns a uniform float in [0, 1) from crypto/rand.
func CryptoFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits for a uniform float64.
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}
