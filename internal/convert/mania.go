package convert

import (
	"log/slog"
	"math"
	"sort"

	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/gamemode"
	"github.com/osu2sm/osu2sm/internal/osu2smerr"
	"github.com/osu2sm/osu2sm/internal/osuio"
	"github.com/osu2sm/osu2sm/internal/timing"
)

// pendingTail is a hold whose head has been emitted but whose tail has not
// yet been reached, kept sorted by EndMs so draining can always pop the
// front.
type pendingTail struct {
	EndMs float64
	Key   int32
}

// Mania converts a mania beatmap into a chart.Simfile, per spec.md §4.4.
func Mania(bm *osuio.Beatmap, logger *slog.Logger) (*chart.Simfile, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bm.Mode != osuio.ModeMania {
		return nil, &osu2smerr.ModeNotSupported{Mode: bm.Mode}
	}

	keyCount := bm.KeyCount()
	if keyCount <= 0 {
		return nil, &osu2smerr.InvalidKeyCount{KeyCount: keyCount}
	}
	mode, err := gamemode.ForKeyCount(keyCount)
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

	var pending []pendingTail
	var notes []chart.Note

	drainUpTo := func(ms float64) error {
		for len(pending) > 0 && pending[0].EndMs <= ms {
			pt := pending[0]
			pending = pending[1:]
			beat, err := engine.GetBeat(pt.EndMs)
			if err != nil {
				return err
			}
			notes = append(notes, chart.Note{Kind: chart.HoldTail, Beat: beat, Key: pt.Key})
		}
		return nil
	}

	for _, obj := range objects {
		if err := drainUpTo(obj.TimeMs); err != nil {
			return nil, err
		}

		key := int(math.Floor(obj.X * float64(keyCount) / 512))
		if key < 0 || key >= keyCount {
			return nil, &osu2smerr.KeyOutOfRange{Key: key, KeyCount: keyCount}
		}

		switch {
		case obj.Type&osuio.TypeHold != 0:
			endMs, err := parseHoldEndMs(obj.Extras)
			if err != nil {
				return nil, err
			}
			insertPendingSorted(&pending, pendingTail{EndMs: endMs, Key: int32(key)})
			beat, err := engine.GetBeat(obj.TimeMs)
			if err != nil {
				return nil, err
			}
			notes = append(notes, chart.Note{Kind: chart.HoldHead, Beat: beat, Key: int32(key)})
		case obj.Type&osuio.TypeHit != 0:
			beat, err := engine.GetBeat(obj.TimeMs)
			if err != nil {
				return nil, err
			}
			notes = append(notes, chart.Note{Kind: chart.Hit, Beat: beat, Key: int32(key)})
		default:
			// Sliders and spinners do not occur in mania beatmaps; ignore
			// anything else per spec.md §4.4 step 5.
		}
	}
	if err := drainUpTo(math.Inf(1)); err != nil {
		return nil, err
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

func insertPendingSorted(pending *[]pendingTail, pt pendingTail) {
	s := *pending
	i := sort.Search(len(s), func(i int) bool { return s[i].EndMs > pt.EndMs })
	s = append(s, pendingTail{})
	copy(s[i+1:], s[i:])
	s[i] = pt
	*pending = s
}
