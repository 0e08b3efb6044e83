package sampling

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler is the one interface the rest of the simulator consumes
// from the distribution-sampling library (spec.md section 1): draw one
// value from a named, parameterised distribution.
type Sampler interface {
	Sample(d Distribution) (float64, error)
}

// GonumSampler backs Sampler with gonum's stat/distuv distributions,
// drawing from a single kernel-owned PRNG so a whole simulation run
// replays deterministically from one seed.
type GonumSampler struct {
	rng *rand.Rand
}

// NewGonumSampler builds a sampler drawing from rng.
func NewGonumSampler(rng *rand.Rand) *GonumSampler {
	return &GonumSampler{rng: rng}
}

// Sample draws one value from d. Recognised distribution names mirror
// scipy.stats names used by the Python source's measurement-fitting
// scripts: "norm", "expon", "uniform", "lognorm", "poisson", plus a
// simulator-only "const" for fixed-value scenarios (used by S3's
// constant time-between-blocks test scenario).
func (s *GonumSampler) Sample(d Distribution) (float64, error) {
	p := d.Parameters
	switch d.Name {
	case "const", "constant":
		if len(p) < 1 {
			return 0, fmt.Errorf("sampling: %q distribution needs 1 parameter", d.Name)
		}
		return p[0], nil
	case "norm", "normal":
		if len(p) < 2 {
			return 0, fmt.Errorf("sampling: %q distribution needs 2 parameters", d.Name)
		}
		dist := distuv.Normal{Mu: p[0], Sigma: p[1], Src: s.rng}
		return dist.Rand(), nil
	case "expon", "exponential":
		if len(p) < 1 {
			return 0, fmt.Errorf("sampling: %q distribution needs 1 parameter", d.Name)
		}
		dist := distuv.Exponential{Rate: p[0], Src: s.rng}
		return dist.Rand(), nil
	case "uniform":
		if len(p) < 2 {
			return 0, fmt.Errorf("sampling: %q distribution needs 2 parameters", d.Name)
		}
		dist := distuv.Uniform{Min: p[0], Max: p[1], Src: s.rng}
		return dist.Rand(), nil
	case "lognorm", "lognormal":
		if len(p) < 2 {
			return 0, fmt.Errorf("sampling: %q distribution needs 2 parameters", d.Name)
		}
		dist := distuv.LogNormal{Mu: p[0], Sigma: p[1], Src: s.rng}
		return dist.Rand(), nil
	case "poisson":
		if len(p) < 1 {
			return 0, fmt.Errorf("sampling: %q distribution needs 1 parameter", d.Name)
		}
		dist := distuv.Poisson{Lambda: p[0], Src: s.rng}
		return dist.Rand(), nil
	default:
		return 0, fmt.Errorf("sampling: unknown distribution %q", d.Name)
	}
}
