// Package keyalloc implements the time-weighted random key allocator
// described in spec.md §4.6: a piecewise-linear weight curve over
// time-since-last-touch drives a weighted random choice among candidate
// keys, so that recently used keys are disfavoured without ever being
// outright forbidden.
package keyalloc

import (
	"math"
	"math/rand"
)

// CurvePoint is one (time, weight) control point of the weight curve.
type CurvePoint struct {
	Seconds float64
	Weight  float64
}

// segment is a preprocessed linear piece of the curve: for t in
// (prevBound, upperBound], weight(t) = slope*t + intercept.
type segment struct {
	upperBound     float64
	slope          float64
	intercept      float64
}

// Curve is a piecewise-linear weight function of elapsed time, preprocessed
// into (upper_bound, slope, intercept) segments plus a constant tail, per
// spec.md §4.6. Before the first point's time it holds flat at the first
// point's weight; after the last point's time it holds flat at the tail
// weight (the last point's weight).
type Curve struct {
	firstSeconds, firstWeight float64
	segments                  []segment
	tailWeight                float64
}

// NewCurve builds a Curve from control points, which need not be
// pre-sorted. At least one point is required.
func NewCurve(points []CurvePoint) *Curve {
	pts := append([]CurvePoint(nil), points...)
	sortBySeconds(pts)

	c := &Curve{
		firstSeconds: pts[0].Seconds,
		firstWeight:  pts[0].Weight,
		tailWeight:   pts[len(pts)-1].Weight,
	}
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dt := b.Seconds - a.Seconds
		var slope float64
		if dt > 0 {
			slope = (b.Weight - a.Weight) / dt
		}
		intercept := a.Weight - slope*a.Seconds
		c.segments = append(c.segments, segment{
			upperBound: b.Seconds,
			slope:      slope,
			intercept:  intercept,
		})
	}
	return c
}

func sortBySeconds(pts []CurvePoint) {
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j].Seconds < pts[j-1].Seconds; j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}

// Weight evaluates the curve at a given elapsed time in seconds.
func (c *Curve) Weight(elapsedSeconds float64) float64 {
	if elapsedSeconds <= c.firstSeconds {
		return c.firstWeight
	}
	for _, seg := range c.segments {
		if elapsedSeconds <= seg.upperBound {
			return seg.slope*elapsedSeconds + seg.intercept
		}
	}
	return c.tailWeight
}

// Allocator is the stateful half of §4.6: it remembers, per key, the time
// it was last touched (or -Inf if never) and turns that into a weighted
// random choice among a caller-supplied candidate set.
type Allocator struct {
	curve      *Curve
	lastActive map[int32]float64
}

// NewAllocator builds an allocator over the given weight curve. Every key
// starts with last_active = -Inf, per spec.md §4.6.
func NewAllocator(curve *Curve) *Allocator {
	return &Allocator{curve: curve, lastActive: make(map[int32]float64)}
}

func (a *Allocator) lastActiveOf(key int32) float64 {
	if t, ok := a.lastActive[key]; ok {
		return t
	}
	return math.Inf(-1)
}

// Touch externally updates last_active[key] without going through Alloc,
// used by the remap stage when a tail frees a key it never itself chose.
func (a *Allocator) Touch(key int32, time float64) {
	a.lastActive[key] = time
}

// Alloc performs a weighted-random choice over candidates, each weighted
// by the curve evaluated at time-since-last-touch. Returns false iff
// candidates is empty. On success, last_active[key] is updated to time.
func (a *Allocator) Alloc(candidates []int32, time float64, rng *rand.Rand) (int32, bool) {
	key, _, ok := a.AllocIdx(candidates, time, rng)
	return key, ok
}

// AllocIdx is Alloc but additionally reports the index of the chosen key
// within candidates, so the caller can O(1) swap-remove it.
func (a *Allocator) AllocIdx(candidates []int32, time float64, rng *rand.Rand) (int32, int, bool) {
	if len(candidates) == 0 {
		return 0, -1, false
	}
	weights := make([]float64, len(candidates))
	var total float64
	for i, k := range candidates {
		w := a.curve.Weight(time - a.lastActiveOf(k))
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}

	var idx int
	if total <= 0 {
		// Degenerate curve: fall back to a uniform choice so a note is
		// never dropped just because every candidate currently has zero
		// weight.
		idx = rng.Intn(len(candidates))
	} else {
		target := rng.Float64() * total
		var cum float64
		idx = len(candidates) - 1
		for i, w := range weights {
			cum += w
			if target < cum {
				idx = i
				break
			}
		}
	}

	key := candidates[idx]
	a.lastActive[key] = time
	return key, idx, true
}
