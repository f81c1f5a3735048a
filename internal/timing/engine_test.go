package timing

import (
	"testing"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/osuio"
)

func TestEngineSingleAbsoluteTimingPoint(t *testing.T) {
	tps := []osuio.TimingPoint{{TimeMs: 0, BeatLenMs: 500, Meter: 4}}
	eng, err := NewEngine(tps, 1000, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if eng.OffsetSeconds() != 0 {
		t.Errorf("offset = %v, want 0", eng.OffsetSeconds())
	}
	cps := eng.ControlPoints()
	if len(cps) != 1 || !cps[0].Beat.Equal(beatpos.Zero) || cps[0].BeatLenSeconds != 0.5 {
		t.Fatalf("unexpected initial control points: %+v", cps)
	}
	beat, err := eng.GetBeat(1000)
	if err != nil {
		t.Fatalf("GetBeat: %v", err)
	}
	if beat.Float64() != 2 {
		t.Errorf("beat = %v, want 2", beat.Float64())
	}
}

func TestEngineHitBeforeFirstTimingPoint(t *testing.T) {
	tps := []osuio.TimingPoint{{TimeMs: 2000, BeatLenMs: 500, Meter: 4}}
	eng, err := NewEngine(tps, 0, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if eng.OffsetSeconds() != 0 {
		t.Errorf("offset = %v, want 0", eng.OffsetSeconds())
	}
	beat, err := eng.GetBeat(0)
	if err != nil {
		t.Fatalf("GetBeat: %v", err)
	}
	if beat.Float64() != 0 {
		t.Errorf("beat = %v, want 0", beat.Float64())
	}
}

func TestEngineCrossesBpmChange(t *testing.T) {
	tps := []osuio.TimingPoint{
		{TimeMs: 0, BeatLenMs: 500, Meter: 4},
		{TimeMs: 2000, BeatLenMs: 250, Meter: 4},
	}
	eng, err := NewEngine(tps, 1500, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	head, err := eng.GetBeat(1500)
	if err != nil {
		t.Fatalf("GetBeat(head): %v", err)
	}
	if head.Float64() != 3 {
		t.Fatalf("head beat = %v, want 3", head.Float64())
	}
	tail, err := eng.GetBeat(3000)
	if err != nil {
		t.Fatalf("GetBeat(tail): %v", err)
	}
	if tail.Float64() != 8 {
		t.Fatalf("tail beat = %v, want 8", tail.Float64())
	}
	cps := eng.ControlPoints()
	if len(cps) != 2 {
		t.Fatalf("got %d control points, want 2", len(cps))
	}
	if cps[1].Beat.Float64() != 4 || cps[1].BeatLenSeconds != 0.25 {
		t.Errorf("second control point = %+v, want beat 4 / 0.25s", cps[1])
	}
}

func TestEngineNoAbsoluteTimingPoint(t *testing.T) {
	tps := []osuio.TimingPoint{{TimeMs: 0, BeatLenMs: -50, Meter: 4}}
	if _, err := NewEngine(tps, 0, nil, nil); err == nil {
		t.Fatal("expected NoAbsoluteTimingPoint error")
	}
}

func TestEngineNonMonotonicRejected(t *testing.T) {
	tps := []osuio.TimingPoint{{TimeMs: 0, BeatLenMs: 500, Meter: 4}}
	eng, err := NewEngine(tps, 0, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := eng.GetBeat(1000); err != nil {
		t.Fatalf("GetBeat: %v", err)
	}
	if _, err := eng.GetBeat(500); err == nil {
		t.Fatal("expected a non-monotonic error")
	}
}

func TestEngineRoundTripViaToTime(t *testing.T) {
	tps := []osuio.TimingPoint{
		{TimeMs: 0, BeatLenMs: 500, Meter: 4},
		{TimeMs: 3000, BeatLenMs: 333.333, Meter: 4},
	}
	eng, err := NewEngine(tps, 0, []beatpos.BeatPos{beatpos.FromFloat64(0.25)}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	times := []float64{0, 250, 500, 1000, 2999, 3000, 4000, 6000}
	var beats []beatpos.BeatPos
	for _, ms := range times {
		b, err := eng.GetBeat(ms)
		if err != nil {
			t.Fatalf("GetBeat(%v): %v", ms, err)
		}
		beats = append(beats, b)
	}

	tt, err := NewToTime(eng.ControlPoints(), eng.OffsetSeconds())
	if err != nil {
		t.Fatalf("NewToTime: %v", err)
	}
	for i, b := range beats {
		secs, err := tt.BeatToTime(b)
		if err != nil {
			t.Fatalf("BeatToTime: %v", err)
		}
		gotMs := secs * 1000
		if diff := gotMs - times[i]; diff > DriftThresholdMs || diff < -DriftThresholdMs {
			t.Errorf("time %v reconstructed as %v (diff %v) exceeds drift threshold", times[i], gotMs, diff)
		}
	}
}
