package selector

import (
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

// #region rand
// Rand is the randomness the selector draws on. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// #endregion rand

// #region choose
// Choose picks an arm. With probability rate it explores uniformly; otherwise
// it takes the highest q, breaking ties toward the offset closest to zero and
// then toward the lower index. rng may be nil when rate is 0.
func Choose(p state.Policy, space offsets.Space, rate float64, rng Rand) int {
	if rate > 0 && rng != nil && rng.Float64() < rate {
		return rng.Intn(len(p.Q))
	}

	best := 0
	for i := 1; i < len(p.Q); i++ {
		switch {
		case p.Q[i] > p.Q[best]:
			best = i
		case p.Q[i] == p.Q[best] && abs(space.At(i)) < abs(space.At(best)):
			best = i
		}
	}
	return best
}

// #endregion choose

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
