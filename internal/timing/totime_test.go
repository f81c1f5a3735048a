package timing

import (
	"math"
	"testing"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
)

func TestToTimeMonotoneAndExact(t *testing.T) {
	cps := []chart.ControlPoint{
		{Beat: beatpos.Zero, BeatLenSeconds: 0.5},
		{Beat: beatpos.FromFloat64(4), BeatLenSeconds: 0.25},
	}
	tt, err := NewToTime(cps, 0)
	if err != nil {
		t.Fatalf("NewToTime: %v", err)
	}

	b1, err := tt.BeatToTime(beatpos.FromFloat64(2))
	if err != nil {
		t.Fatalf("BeatToTime: %v", err)
	}
	if want := 1.0; math.Abs(b1-want) > 1e-9 {
		t.Errorf("t(2) = %v, want %v", b1, want)
	}

	b2, err := tt.BeatToTime(beatpos.FromFloat64(6))
	if err != nil {
		t.Fatalf("BeatToTime: %v", err)
	}
	// 4 beats at 0.5s + 2 beats at 0.25s = 2 + 0.5 = 2.5
	if want := 2.5; math.Abs(b2-want) > 1e-9 {
		t.Errorf("t(6) = %v, want %v", b2, want)
	}
	if b2 < b1 {
		t.Errorf("time should be non-decreasing for non-decreasing beats")
	}
}

func TestToTimeRejectsBackwardSeek(t *testing.T) {
	cps := []chart.ControlPoint{{Beat: beatpos.Zero, BeatLenSeconds: 0.5}}
	tt, _ := NewToTime(cps, 0)
	if _, err := tt.BeatToTime(beatpos.FromFloat64(4)); err != nil {
		t.Fatalf("BeatToTime: %v", err)
	}
	if _, err := tt.BeatToTime(beatpos.FromFloat64(2)); err == nil {
		t.Fatal("expected an error seeking backward")
	}
}

func TestToTimeClone(t *testing.T) {
	cps := []chart.ControlPoint{{Beat: beatpos.Zero, BeatLenSeconds: 0.5}}
	tt, _ := NewToTime(cps, 0)
	if _, err := tt.BeatToTime(beatpos.FromFloat64(4)); err != nil {
		t.Fatalf("BeatToTime: %v", err)
	}
	checkpoint := tt.Clone()
	if _, err := tt.BeatToTime(beatpos.FromFloat64(8)); err != nil {
		t.Fatalf("BeatToTime: %v", err)
	}
	// the clone should still be positioned at beat 4, so it accepts beat 6
	if _, err := checkpoint.BeatToTime(beatpos.FromFloat64(6)); err != nil {
		t.Fatalf("clone should independently accept beat 6: %v", err)
	}
}
