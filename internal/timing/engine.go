package timing

import (
	"log/slog"
	"math"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/osu2smerr"
	"github.com/osu2sm/osu2sm/internal/osuio"
)

// DriftThresholdMs is the maximum acceptable gap between a rounded control
// point boundary and the osu! timing point it approximates before the
// engine attempts a pivot correction. Tunable, per spec.md §4.2/§9, but the
// pivot candidate sequence below is not.
const DriftThresholdMs = 4.0

// pivotCandidates is the fixed sequence of snapping granularities tried,
// coarsest first, when a pivot control point is needed to absorb drift.
var pivotCandidates = []beatpos.BeatPos{
	beatpos.FromFloat64(1),
	beatpos.FromFloat64(0.5),
	beatpos.FromFloat64(0.25),
	beatpos.FromFloat64(0.125),
	beatpos.FromFloat64(0.0625),
	beatpos.Epsilon,
}

// Engine converts osu! hit-object times (milliseconds) in monotone order
// into exact fixed-point beat positions, threading a sequence of BPM and
// inherited timing points while emitting the chart's control points.
type Engine struct {
	logger *slog.Logger

	curTP     osuio.TimingPoint
	curTimeMs float64
	curBeat   beatpos.BeatPos

	rounding            beatpos.BeatPos
	inheritedMultiplier float64
	restTP              []osuio.TimingPoint

	offsetSeconds float64
	controlPoints []chart.ControlPoint

	lastNoteBeat    beatpos.BeatPos
	lastQueryTimeMs float64
	haveQueried     bool

	minBeatLenMs, maxBeatLenMs float64
}

// NewEngine initialises the timing engine from a beatmap's timing points
// and the time of the first hit object it will be asked about, per
// spec.md §4.2 "Initialisation". roundingCandidates is tried in order; the
// first candidate producing no rounding aliasing among the absolute
// timing points is used, or no rounding at all if none qualify (or the
// list is empty).
func NewEngine(timingPoints []osuio.TimingPoint, firstHitTimeMs float64, roundingCandidates []beatpos.BeatPos, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	originIdx := -1
	for i, tp := range timingPoints {
		if tp.IsInherited() {
			continue
		}
		if tp.TimeMs <= firstHitTimeMs {
			originIdx = i // keep advancing: "last" absolute TP <= firstHitTimeMs
		}
	}
	if originIdx < 0 {
		for i, tp := range timingPoints {
			if !tp.IsInherited() {
				originIdx = i
				break
			}
		}
	}
	if originIdx < 0 {
		return nil, osu2smerr.NoAbsoluteTimingPoint
	}

	origin := timingPoints[originIdx]
	period := origin.BeatLenMs * float64(origin.Meter)
	if period > 0 {
		for origin.TimeMs > firstHitTimeMs {
			origin.TimeMs -= period
		}
	}

	rest := append([]osuio.TimingPoint(nil), timingPoints[originIdx+1:]...)

	rounding := chooseRounding(origin, rest, roundingCandidates)

	e := &Engine{
		logger:              logger,
		curTP:               origin,
		curTimeMs:           origin.TimeMs,
		curBeat:             beatpos.Zero,
		rounding:            rounding,
		inheritedMultiplier: 1,
		restTP:              rest,
		offsetSeconds:       -origin.TimeMs / 1000,
		minBeatLenMs:        origin.BeatLenMs,
		maxBeatLenMs:        origin.BeatLenMs,
	}
	e.controlPoints = append(e.controlPoints, chart.ControlPoint{
		Beat:           beatpos.Zero,
		BeatLenSeconds: origin.BeatLenMs / 1000,
	})
	return e, nil
}

// chooseRounding simulates advancing through the absolute timing points in
// rest (with origin as the starting absolute point) under each candidate
// and returns the first one that produces no aliasing: no two distinct
// input times mapping to the same rounded beat position.
func chooseRounding(origin osuio.TimingPoint, rest []osuio.TimingPoint, candidates []beatpos.BeatPos) beatpos.BeatPos {
	for _, r := range candidates {
		if !aliases(origin, rest, r) {
			return r
		}
	}
	return beatpos.FromTicks(0)
}

func aliases(origin osuio.TimingPoint, rest []osuio.TimingPoint, rounding beatpos.BeatPos) bool {
	curBeat := beatpos.Zero
	curTimeMs := origin.TimeMs
	curBeatLenMs := origin.BeatLenMs
	seen := map[int64]float64{}

	for _, tp := range rest {
		if tp.IsInherited() {
			continue
		}
		rawAdv := (tp.TimeMs - curTimeMs) / curBeatLenMs
		beatAdv := advanceBeats(rawAdv, rounding)
		tpBeat := curBeat.Add(beatAdv)
		if prevTime, ok := seen[tpBeat.Ticks()]; ok && prevTime != tp.TimeMs {
			return true
		}
		seen[tpBeat.Ticks()] = tp.TimeMs
		curBeat = tpBeat
		curTimeMs = tp.TimeMs
		curBeatLenMs = tp.BeatLenMs
	}
	return false
}

func advanceBeats(rawAdv float64, rounding beatpos.BeatPos) beatpos.BeatPos {
	adv := beatpos.FromFloat64(rawAdv)
	if rounding.Ticks() == 0 {
		return adv
	}
	return adv.Ceil(rounding)
}

// ControlPoints returns the control points emitted so far.
func (e *Engine) ControlPoints() []chart.ControlPoint {
	return append([]chart.ControlPoint(nil), e.controlPoints...)
}

// OffsetSeconds returns the simfile-wide offset derived from the first
// timing point.
func (e *Engine) OffsetSeconds() float64 { return e.offsetSeconds }

// BeatLenRange returns the minimum and maximum beat length (ms) seen
// across every absolute timing point advanced through so far.
func (e *Engine) BeatLenRange() (min, max float64) { return e.minBeatLenMs, e.maxBeatLenMs }

// CurrentBeatLenMs returns the beat length (ms/beat) of the most recently
// advanced-through absolute timing point, for callers (the standard-mode
// converter's slider-duration formula) that need the raw BPM alongside
// the beat position GetBeat returns.
func (e *Engine) CurrentBeatLenMs() float64 { return e.curTP.BeatLenMs }

// CurrentInheritedMultiplier returns the beat-length multiplier
// (BeatLenMs / -100, the reciprocal of osuio's SliderMultiplier) of the
// most recently seen inherited timing point, or 1 if none has applied
// since the last absolute point.
func (e *Engine) CurrentInheritedMultiplier() float64 { return e.inheritedMultiplier }

// GetBeat advances the engine past every timing point at or before
// timeMs and returns the exact fixed-point beat position of timeMs. Hit
// object times must be supplied in monotone non-decreasing order; a
// violation is reported as osu2smerr.NonMonotonicHitObject.
func (e *Engine) GetBeat(timeMs float64) (beatpos.BeatPos, error) {
	if e.haveQueried && timeMs < e.lastQueryTimeMs {
		return beatpos.Zero, &osu2smerr.NonMonotonicHitObject{PrevMs: e.lastQueryTimeMs, GotMs: timeMs}
	}
	e.haveQueried = true
	e.lastQueryTimeMs = timeMs

	for len(e.restTP) > 0 && e.restTP[0].TimeMs <= timeMs {
		next := e.restTP[0]
		e.restTP = e.restTP[1:]

		if next.IsInherited() {
			e.inheritedMultiplier = next.BeatLenMs / -100
			continue
		}

		rawAdv := (next.TimeMs - e.curTimeMs) / e.curTP.BeatLenMs
		beatAdv := advanceBeats(rawAdv, e.rounding)
		tpBeat := e.curBeat.Add(beatAdv)
		tpTime := e.curTimeMs + beatAdv.Float64()*e.curTP.BeatLenMs

		if math.Abs(tpTime-next.TimeMs) >= DriftThresholdMs {
			if pivot, ok := e.findPivot(rawAdv); ok {
				beatLenMs := ((next.TimeMs - e.curTimeMs) - pivot.Sub(e.curBeat).Float64()*e.curTP.BeatLenMs) / tpBeat.Sub(pivot).Float64()
				e.controlPoints = append(e.controlPoints, chart.ControlPoint{
					Beat:           pivot,
					BeatLenSeconds: beatLenMs / 1000,
				})
				tpTime = next.TimeMs
			} else {
				e.logger.Warn("timing: accepting uncorrected drift",
					"drift_ms", tpTime-next.TimeMs,
					"at_beat", tpBeat.Float64(),
				)
			}
		}

		e.curBeat = tpBeat
		e.curTimeMs = tpTime
		e.curTP = next
		e.inheritedMultiplier = 1
		e.controlPoints = append(e.controlPoints, chart.ControlPoint{
			Beat:           e.curBeat,
			BeatLenSeconds: e.curTP.BeatLenMs / 1000,
		})
		if e.curTP.BeatLenMs < e.minBeatLenMs {
			e.minBeatLenMs = e.curTP.BeatLenMs
		}
		if e.curTP.BeatLenMs > e.maxBeatLenMs {
			e.maxBeatLenMs = e.curTP.BeatLenMs
		}
	}

	result := e.curBeat.Add(beatpos.FromFloat64((timeMs - e.curTP.TimeMs) / e.curTP.BeatLenMs))
	if result.Greater(e.lastNoteBeat) {
		e.lastNoteBeat = result
	}
	return result, nil
}

// findPivot locates a pivot control-point beat, at or after
// max(lastNoteBeat, curBeat), that can absorb the drift exactly, trying
// granularities coarsest-first per pivotCandidates and returning the
// first that fits (the coarsest-aligned pivot, not the largest beat).
func (e *Engine) findPivot(rawAdv float64) (beatpos.BeatPos, bool) {
	target := e.curBeat.Add(beatpos.FromFloat64(rawAdv))
	minAllowed := beatpos.Max(e.lastNoteBeat, e.curBeat)
	for _, g := range pivotCandidates {
		pivot := target.Ceil(g).Sub(g)
		if pivot.GreaterEq(minAllowed) {
			return pivot, true
		}
	}
	return beatpos.Zero, false
}
