package engine

import "fmt"

// RandomSource supplies uniform integers in [0, n). *math/rand.Rand
// satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// RejectFunc returns true for positions the sampler must not pick.
type RejectFunc func(g *Grid, p Position) bool

// SampleUnoccupied picks a uniformly random empty cell that reject does not
// refuse, then a uniform orientation. It gives up after a bounded number of
// draws.
func SampleUnoccupied(g *Grid, rng RandomSource, reject RejectFunc) (Pose, error) {
	tries := 4 * g.Width() * g.Height()
	if tries < 100 {
		tries = 100
	}
	for i := 0; i < tries; i++ {
		p := Position{X: rng.Intn(g.Width()), Y: rng.Intn(g.Height())}
		if g.At(p).Kind != Empty {
			continue
		}
		if reject != nil && reject(g, p) {
			continue
		}
		return Pose{Pos: p, Dir: Direction(rng.Intn(4))}, nil
	}
	return Pose{}, fmt.Errorf("%w: no free cell after %d draws on %dx%d grid", ErrSamplerExhausted, tries, g.Width(), g.Height())
}
