package convert

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/gamemode"
	"github.com/osu2sm/osu2sm/internal/keyalloc"
	"github.com/osu2sm/osu2sm/internal/osu2smerr"
	"github.com/osu2sm/osu2sm/internal/osuio"
	"github.com/osu2sm/osu2sm/internal/timing"
)

// StandardConfig parameterises the simplified osu!standard→chart
// conversion of spec.md §4.5: everything that formula leaves as a tunable
// constant lives here instead of being hard-coded.
type StandardConfig struct {
	// KeyCount is the output chart's key count; the gamemode tag is looked
	// up from it via internal/gamemode.
	KeyCount int

	// DistToKeyCount holds len(DistToKeyCount) == KeyCount-1 ascending
	// pixel-distance thresholds. A hit whose distance from the previous
	// object is below DistToKeyCount[0] is a single note; one in
	// [DistToKeyCount[i], DistToKeyCount[i+1]) becomes a chord of i+2
	// keys; distances at or past the last threshold become a full
	// KeyCount-key chord.
	DistToKeyCount []float64

	// MinSliderBounceMs is the minimum per-slide duration below which a
	// slider's repeats collapse into a single hold instead of one hold per
	// slide.
	MinSliderBounceMs float64

	// SpinsPerSecond estimates how many full spins a player completes per
	// second of spinner duration, standing in for the osu! OD/AR-derived
	// spin-count the original engine would compute from game state this
	// converter does not have.
	SpinsPerSecond float64

	// StepsPerSpin is how many stair steps one spin is divided into.
	StepsPerSpin float64

	// Curve feeds the key allocator's time-weighted choice.
	Curve *keyalloc.Curve
}

// chordSize maps a Δposition (pixel distance from the previous object) to
// a chord size in [1, KeyCount], per the piecewise rule of spec.md §4.5.
func (c StandardConfig) chordSize(dist float64) int {
	n := 1
	for _, threshold := range c.DistToKeyCount {
		if dist >= threshold {
			n++
		}
	}
	if n > c.KeyCount {
		n = c.KeyCount
	}
	return n
}

// Standard converts an osu!standard beatmap into a chart.Simfile, per
// spec.md §4.5. rng must be seeded deterministically by the caller (never
// a package-global source), per spec.md §9.
func Standard(bm *osuio.Beatmap, cfg StandardConfig, rng *rand.Rand, logger *slog.Logger) (*chart.Simfile, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bm.Mode != osuio.ModeStandard {
		return nil, &osu2smerr.ModeNotSupported{Mode: bm.Mode}
	}
	if cfg.KeyCount <= 0 {
		return nil, &osu2smerr.InvalidKeyCount{KeyCount: cfg.KeyCount}
	}
	mode, err := gamemode.ForKeyCount(cfg.KeyCount)
	if err != nil {
		return nil, err
	}

	objects := bm.HitObjects
	if bm.UnsortedHitObjects {
		objects = append([]osuio.HitObject(nil), objects...)
		sort.SliceStable(objects, func(i, j int) bool { return objects[i].TimeMs < objects[j].TimeMs })
	}

	firstMs := 0.0
	if len(objects) > 0 {
		firstMs = objects[0].TimeMs
	}
	engine, err := timing.NewEngine(bm.TimingPoints, firstMs, nil, logger)
	if err != nil {
		return nil, err
	}

	alloc := keyalloc.NewAllocator(cfg.Curve)
	allKeys := make([]int32, cfg.KeyCount)
	for i := range allKeys {
		allKeys[i] = int32(i)
	}

	var notes []chart.Note
	prevX, prevY := 0.0, 0.0
	haveLast := false

	emitChord := func(n int, timeMs float64) []int32 {
		candidates := append([]int32(nil), allKeys...)
		keys := make([]int32, 0, n)
		for i := 0; i < n && len(candidates) > 0; i++ {
			k, idx, ok := alloc.AllocIdx(candidates, timeMs/1000, rng)
			if !ok {
				break
			}
			keys = append(keys, k)
			candidates[idx] = candidates[len(candidates)-1]
			candidates = candidates[:len(candidates)-1]
		}
		return keys
	}

	for _, obj := range objects {
		dist := 0.0
		if haveLast {
			dx, dy := obj.X-prevX, obj.Y-prevY
			dist = math.Hypot(dx, dy)
		}
		haveLast = true
		prevX, prevY = obj.X, obj.Y

		switch {
		case obj.Type&osuio.TypeSlider != 0:
			se, err := parseSliderExtras(obj.Extras)
			if err != nil {
				return nil, err
			}
			beatLenMs, inheritedMult := engine.CurrentBeatLenMs(), engine.CurrentInheritedMultiplier()
			perSlideMs := se.LengthPixels / (100 * bm.SliderMultiplier) * beatLenMs * inheritedMult

			segments := se.Slides
			segMs := perSlideMs
			if segMs < cfg.MinSliderBounceMs {
				segments = 1
				segMs = perSlideMs * float64(se.Slides)
			}

			n := cfg.chordSize(dist)
			t := obj.TimeMs
			for s := 0; s < segments; s++ {
				segEnd := t + segMs
				keys := emitChord(n, t)
				headBeat, err := engine.GetBeat(t)
				if err != nil {
					return nil, err
				}
				tailBeat, err := engine.GetBeat(segEnd)
				if err != nil {
					return nil, err
				}
				for _, k := range keys {
					notes = append(notes, chart.Note{Kind: chart.HoldHead, Beat: headBeat, Key: k})
					notes = append(notes, chart.Note{Kind: chart.HoldTail, Beat: tailBeat, Key: k})
					alloc.Touch(k, segEnd/1000)
				}
				t = segEnd
			}

		case obj.Type&osuio.TypeSpinner != 0:
			endMs, err := parseSpinnerEndMs(obj.Extras)
			if err != nil {
				return nil, err
			}
			beat, err := engine.GetBeat(obj.TimeMs)
			if err != nil {
				return nil, err
			}
			endBeat, err := engine.GetBeat(endMs)
			if err != nil {
				return nil, err
			}
			durationBeats := endBeat.Float64() - beat.Float64()
			durationSecs := (endMs - obj.TimeMs) / 1000
			spins := cfg.SpinsPerSecond * durationSecs
			if spins <= 0 {
				spins = 1
			}
			step := nearestPowerOfTwo(durationBeats / (spins * cfg.StepsPerSpin))
			if step < 1.0/16 {
				step = 1.0 / 16
			}
			stepBp := beatpos.FromFloat64(step)

			key := 0
			for cur := beat; cur.Less(endBeat); cur = cur.Add(stepBp) {
				notes = append(notes, chart.Note{Kind: chart.Hit, Beat: cur, Key: int32(key % cfg.KeyCount)})
				key++
			}

		case obj.Type&osuio.TypeHit != 0:
			n := cfg.chordSize(dist)
			beat, err := engine.GetBeat(obj.TimeMs)
			if err != nil {
				return nil, err
			}
			keys := emitChord(n, obj.TimeMs)
			for _, k := range keys {
				notes = append(notes, chart.Note{Kind: chart.Hit, Beat: beat, Key: k})
			}

		default:
		}
	}

	sf := &chart.Simfile{
		Gamemode: mode.Tag,
		BPMs:     engine.ControlPoints(),
		Notes:    notes,
	}
	sf.OffsetSeconds = engine.OffsetSeconds()
	sf.SortNotes()
	sf.FixTails()
	return sf, nil
}

// nearestPowerOfTwo returns the power of two closest to x on a log scale.
func nearestPowerOfTwo(x float64) float64 {
	if x <= 0 {
		return 1.0 / 16
	}
	exp := math.Round(math.Log2(x))
	return math.Pow(2, exp)
}
