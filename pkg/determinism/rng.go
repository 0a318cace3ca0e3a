package determinism

import (
	"encoding/binary"
	"math"
	"math/rand"
	"time"

	"golang.org/x/crypto/blake2b"
)

// RNG is the deterministic pseudo-random facade bound to a single run.
// It wraps math/rand's default generator (not cryptographically strong,
// but stable across platforms, which is what seed replay requires).
type RNG struct {
	r *rand.Rand
}

func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(int64(seed)))}
}

func (g *RNG) NextU64() uint64 {
	return g.r.Uint64()
}

// GenRange is uniform on the half-open interval [lo, hi).
func (g *RNG) GenRange(lo, hi uint64) uint64 {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Uint64()%(hi-lo)
}

// GenRangeDist draws lo + floor((hi-lo) * u^(1/bias)) for u in [0,1):
// biased toward lo when bias < 1, toward hi when bias > 1, uniform at
// bias == 1. E[u^k] = 1/(k+1), so the exponent is 1/bias rather than bias
// itself — taking a root of u (bias > 1, exponent < 1) pulls the mean
// above 0.5 toward hi, and raising it to a power greater than one (bias < 1,
// exponent > 1) pulls it below 0.5 toward lo.
func (g *RNG) GenRangeDist(lo, hi uint64, bias float64) uint64 {
	if hi <= lo {
		return lo
	}
	if bias <= 0 {
		bias = 1e-9
	}
	u := g.r.Float64()
	scaled := math.Pow(u, 1/bias)
	delta := uint64(math.Floor(float64(hi-lo) * scaled))
	if span := hi - lo; delta >= span {
		delta = span - 1
	}
	return lo + delta
}

func (g *RNG) GenDuration(lo, hi time.Duration) time.Duration {
	return time.Duration(g.GenRange(uint64(lo), uint64(hi)))
}

func (g *RNG) Float64() float64 { return g.r.Float64() }

func (g *RNG) Shuffle(n int, swap func(i, j int)) {
	g.r.Shuffle(n, swap)
}

// Choose draws a uniformly random element of items.
func Choose[T any](g *RNG, items []T) T {
	return items[g.GenRange(0, uint64(len(items)))]
}

// EffectiveSeed derives run k's seed from the initial seed. Run 1 always
// uses the initial seed verbatim; later runs are a pure function of
// (initial, k) via blake2b so that replaying the whole batch from the
// original seed reproduces every run's seed in order.
func EffectiveSeed(initial uint64, runIndex uint64) uint64 {
	if runIndex <= 1 {
		return initial
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], initial)
	binary.LittleEndian.PutUint64(buf[8:16], runIndex)
	sum := blake2b.Sum512(buf[:])
	return binary.LittleEndian.Uint64(sum[:8])
}
