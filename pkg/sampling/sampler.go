// Package sampling draws random points inside region volumes by bounding
// box rejection sampling.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/chazu/brainscene/pkg/atlas"
	"github.com/chazu/brainscene/pkg/kernel"
)

// DefaultCandidatePool is the number of candidates drawn per call when
// Sampler.CandidatePool is zero.
const DefaultCandidatePool = 10000

var (
	// ErrInsufficientSamples is returned when no candidate falls inside the
	// region, so no points can be drawn.
	ErrInsufficientSamples = errors.New("no candidate points inside region")

	// ErrInvalidCount is returned for a negative point count.
	ErrInvalidCount = errors.New("invalid point count")
)

// Resolver turns a region acronym into a volume, optionally restricted to a
// hemisphere. *atlas.Atlas implements it.
type Resolver interface {
	Resolve(acronym string, h atlas.Hemisphere) (kernel.Solid, bool)
}

// Region identifies what to sample: a named atlas region or a volume.
type Region struct {
	acronym    string
	hemisphere atlas.Hemisphere
	solid      kernel.Solid
}

// ByName refers to an atlas region, optionally one hemisphere of it.
func ByName(acronym string, h atlas.Hemisphere) Region {
	return Region{acronym: acronym, hemisphere: h}
}

// ByMesh samples the given volume directly.
func ByMesh(s kernel.Solid) Region {
	return Region{solid: s}
}

func (r Region) String() string {
	switch {
	case r.solid != nil:
		return "mesh"
	case r.hemisphere != atlas.HemisphereBoth:
		return fmt.Sprintf("%s (%s)", r.acronym, r.hemisphere)
	}
	return r.acronym
}

// Sampler draws points inside regions. The zero value samples integer
// coordinates from DefaultCandidatePool candidates using the global random
// source, and can only sample regions given by mesh.
type Sampler struct {
	Resolver Resolver

	// CandidatePool is the number of candidates drawn in the bounding box.
	// Zero means DefaultCandidatePool.
	CandidatePool int

	// Continuous draws real-valued candidates instead of integer ones.
	Continuous bool

	// Rand is the random source. Nil uses the global math/rand/v2 source.
	Rand *rand.Rand

	// Metrics, when set, records candidate acceptance.
	Metrics *Metrics
}

// New returns a sampler resolving names through r.
func New(r Resolver) *Sampler {
	return &Sampler{Resolver: r}
}

// Sample returns n points inside or on the surface of region, drawn
// uniformly with replacement from the candidates that fell inside it, so
// points may repeat. found is false, with a nil error, when the region name
// does not resolve.
func (s *Sampler) Sample(region Region, n int) (points [][3]float64, found bool, err error) {
	if n < 0 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}

	solid := region.solid
	if solid == nil {
		if s.Resolver == nil {
			return nil, false, fmt.Errorf("sampling %s: no region resolver configured", region)
		}
		var ok bool
		solid, ok = s.Resolver.Resolve(region.acronym, region.hemisphere)
		if !ok || solid == nil {
			if s.Metrics != nil {
				s.Metrics.NotFound.Inc()
			}
			return nil, false, nil
		}
	}
	if n == 0 {
		return [][3]float64{}, true, nil
	}

	inside := s.Inside(solid)
	if len(inside) == 0 {
		if s.Metrics != nil {
			s.Metrics.Failures.Inc()
		}
		return nil, true, fmt.Errorf("sampling %s: %w (%d candidates)", region, ErrInsufficientSamples, s.pool())
	}

	points = make([][3]float64, n)
	for i := range points {
		points[i] = inside[s.intN(len(inside))]
	}
	return points, true, nil
}

// Inside draws the candidate pool in the bounding box of solid and returns
// the candidates it contains.
func (s *Sampler) Inside(solid kernel.Solid) [][3]float64 {
	min, max := solid.BoundingBox()
	pool := s.pool()

	var lo, hi [3]float64
	for a := 0; a < 3; a++ {
		lo[a], hi[a] = min[a], max[a]
		if !s.Continuous {
			lo[a], hi[a] = math.Ceil(min[a]), math.Floor(max[a])
		}
		if lo[a] > hi[a] {
			// No lattice point in the box on this axis.
			s.observe(pool, 0)
			return nil
		}
	}

	var inside [][3]float64
	for i := 0; i < pool; i++ {
		var p [3]float64
		for a := 0; a < 3; a++ {
			p[a] = s.coord(lo[a], hi[a])
		}
		if solid.Contains(p) {
			inside = append(inside, p)
		}
	}
	s.observe(pool, len(inside))
	return inside
}

func (s *Sampler) pool() int {
	if s.CandidatePool > 0 {
		return s.CandidatePool
	}
	return DefaultCandidatePool
}

// coord draws one coordinate in [lo, hi]. In lattice mode lo and hi are
// integers and every integer in the range is equally likely.
func (s *Sampler) coord(lo, hi float64) float64 {
	if s.Continuous {
		return lo + s.randFloat()*(hi-lo)
	}
	return lo + float64(s.int64N(int64(hi-lo)+1))
}

func (s *Sampler) observe(candidates, accepted int) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.Candidates.Add(float64(candidates))
	s.Metrics.Accepted.Add(float64(accepted))
	if candidates > 0 {
		s.Metrics.Acceptance.Observe(float64(accepted) / float64(candidates))
	}
}

func (s *Sampler) intN(n int) int {
	if s.Rand != nil {
		return s.Rand.IntN(n)
	}
	return rand.IntN(n)
}

func (s *Sampler) int64N(n int64) int64 {
	if s.Rand != nil {
		return s.Rand.Int64N(n)
	}
	return rand.Int64N(n)
}

func (s *Sampler) randFloat() float64 {
	if s.Rand != nil {
		return s.Rand.Float64()
	}
	return rand.Float64()
}
