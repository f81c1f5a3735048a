package timing

import (
	"fmt"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
)

// ToTime is a stateful forward cursor converting beat positions to wall-clock
// seconds over a chart's control points. It accepts only monotonically
// non-decreasing beats; callers rewind by cloning or by constructing a
// fresh cursor.
type ToTime struct {
	cps    []chart.ControlPoint
	offset float64

	idx      int     // index of the control point currently in effect
	accum    float64 // seconds accumulated through cps[idx].Beat
	lastBeat beatpos.BeatPos
}

// NewToTime builds a cursor over cps (which must be non-empty, with the
// first control point at beat 0) with the given offset in seconds,
// subtracted from every result.
func NewToTime(cps []chart.ControlPoint, offsetSeconds float64) (*ToTime, error) {
	if len(cps) == 0 {
		return nil, fmt.Errorf("timing: ToTime needs at least one control point")
	}
	return &ToTime{cps: cps, offset: offsetSeconds, lastBeat: beatpos.Zero}, nil
}

// Clone returns an independent checkpoint of the cursor's current state.
// The underlying control-point slice is shared (it is immutable once the
// chart is built) so cloning is O(1).
func (t *ToTime) Clone() *ToTime {
	c := *t
	return &c
}

// BeatToTime advances the cursor to beat and returns the corresponding
// wall-clock time in seconds. beat must be >= the beat passed to the
// previous call.
func (t *ToTime) BeatToTime(beat beatpos.BeatPos) (float64, error) {
	if beat.Less(t.lastBeat) {
		return 0, fmt.Errorf("timing: ToTime given non-monotonic beat %v after %v", beat.Float64(), t.lastBeat.Float64())
	}
	for t.idx+1 < len(t.cps) && t.cps[t.idx+1].Beat.LessEq(beat) {
		dBeat := t.cps[t.idx+1].Beat.Sub(t.cps[t.idx].Beat).Float64()
		t.accum += dBeat * t.cps[t.idx].BeatLenSeconds
		t.idx++
	}
	remaining := beat.Sub(t.cps[t.idx].Beat).Float64()
	t.lastBeat = beat
	return -t.offset + t.accum + remaining*t.cps[t.idx].BeatLenSeconds, nil
}
