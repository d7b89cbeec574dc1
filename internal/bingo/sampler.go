package bingo

import (
	"errors"
	"math/rand"
)

var ErrPoolExhausted = errors.New("no numbers remain in the pool")

// Sampler draws values from a NumberRange without replacement.
// It is not safe for concurrent use.
type Sampler struct {
	rng   *rand.Rand
	pool  NumberRange
	seen  map[int]struct{}
	drawn []int
}

func NewSampler(rng *rand.Rand, pool NumberRange) *Sampler {
	return &Sampler{
		rng:   rng,
		pool:  pool,
		seen:  make(map[int]struct{}, pool.Size()),
		drawn: make([]int, 0, pool.Size()),
	}
}

// Sample - returns a value not returned before, or ErrPoolExhausted.
func (that *Sampler) Sample() (int, error) {
	if len(that.seen) >= that.pool.Size() {
		return 0, ErrPoolExhausted
	}

	for {
		n := that.pool.Min + that.rng.Intn(that.pool.Size()) //nolint: gosec // game randomness
		if _, ok := that.seen[n]; ok {
			continue
		}

		that.seen[n] = struct{}{}
		that.drawn = append(that.drawn, n)

		return n, nil
	}
}

// Drawn - values in the order they were sampled.
func (that *Sampler) Drawn() []int {
	out := make([]int, len(that.drawn))
	copy(out, that.drawn)
	return out
}

func (that *Sampler) Len() int {
	return len(that.drawn)
}
