package convert

import (
	"math/rand"
	"testing"

	"github.com/osu2sm/osu2sm/internal/keyalloc"
	"github.com/osu2sm/osu2sm/internal/osuio"
)

func standardConfig() StandardConfig {
	return StandardConfig{
		KeyCount:          4,
		DistToKeyCount:    []float64{50, 120, 200},
		MinSliderBounceMs: 90,
		SpinsPerSecond:    2,
		StepsPerSpin:      4,
		Curve: keyalloc.NewCurve([]keyalloc.CurvePoint{
			{Seconds: 0, Weight: 0},
			{Seconds: 0.2, Weight: 1},
		}),
	}
}

func standardBeatmap() *osuio.Beatmap {
	return &osuio.Beatmap{
		Mode:             osuio.ModeStandard,
		SliderMultiplier: 1.4,
		TimingPoints: []osuio.TimingPoint{
			{TimeMs: 0, BeatLenMs: 500, Meter: 4},
		},
		HitObjects: []osuio.HitObject{
			{X: 100, Y: 100, TimeMs: 0, Type: osuio.TypeHit},
			{X: 300, Y: 100, TimeMs: 500, Type: osuio.TypeSlider, Extras: "0,0,2,140"},
			{X: 300, Y: 300, TimeMs: 3000, Type: osuio.TypeSpinner, Extras: "0,4000"},
		},
	}
}

func TestStandardConvertsWithoutError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sf, err := Standard(standardBeatmap(), standardConfig(), rng, nil)
	if err != nil {
		t.Fatalf("Standard: %v", err)
	}
	if sf.Gamemode != "dance-single" {
		t.Errorf("gamemode = %q, want dance-single", sf.Gamemode)
	}
	if len(sf.Notes) == 0 {
		t.Fatal("expected at least one note")
	}
	if err := sf.ValidateInvariants(); err != nil {
		t.Errorf("invariants failed: %v", err)
	}
}

func TestStandardChordSizePiecewise(t *testing.T) {
	cfg := standardConfig()
	cases := []struct {
		dist float64
		want int
	}{
		{0, 1},
		{50, 2},
		{119, 2},
		{120, 3},
		{500, 4},
	}
	for _, c := range cases {
		if got := cfg.chordSize(c.dist); got != c.want {
			t.Errorf("chordSize(%v) = %d, want %d", c.dist, got, c.want)
		}
	}
}

func TestStandardRejectsNonStandardMode(t *testing.T) {
	bm := standardBeatmap()
	bm.Mode = osuio.ModeMania
	if _, err := Standard(bm, standardConfig(), rand.New(rand.NewSource(1)), nil); err == nil {
		t.Fatal("expected a ModeNotSupported error")
	}
}

func TestNearestPowerOfTwo(t *testing.T) {
	cases := map[float64]float64{
		1:    1,
		0.3:  0.25,
		0.7:  0.5,
		3:    4,
		0.01: 1.0 / 128,
	}
	for in, want := range cases {
		if got := nearestPowerOfTwo(in); got != want {
			t.Errorf("nearestPowerOfTwo(%v) = %v, want %v", in, got, want)
		}
	}
}
