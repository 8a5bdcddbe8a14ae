package booking

import (
	"math/rand"
	"sync"
	"time"
)

// Picker chooses one of n candidates, returning an index in [0, n).
type Picker interface {
	Pick(n int) int
}

// RandomPicker picks uniformly. Safe for concurrent use.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPicker wraps rng; a nil rng is seeded from the clock.
func NewRandomPicker(rng *rand.Rand) *RandomPicker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomPicker{rng: rng}
}

func (p *RandomPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// pickID returns the caller's id when set, otherwise a pool member (0 if the pool is empty).
func pickID(given int64, pool []int64, p Picker) int64 {
	if given > 0 {
		return given
	}
	if len(pool) == 0 {
		return 0
	}
	i := p.Pick(len(pool))
	if i < 0 || i >= len(pool) {
		i = 0
	}
	return pool[i]
}
