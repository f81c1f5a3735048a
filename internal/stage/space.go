package stage

import (
	"math"

	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/detrand"
	"github.com/osu2sm/osu2sm/internal/pipeline"
	"github.com/osu2sm/osu2sm/internal/timing"
)

// SpaceMode selects whether Space's limit is a minimum BPM (converted to
// a minimum time gap) or a minimum beat gap directly.
type SpaceMode int

const (
	MinBpm SpaceMode = iota
	MinBeats
)

// minBpmEpsilonSeconds shaves a small margin off the MinBpm threshold so a
// gap exactly at the nominal minimum isn't rejected, per spec.md §8
// Scenario 6.
const minBpmEpsilonSeconds = 0.010

// Space greedily thins out notes that are closer together than a limit,
// preferring to remove the most "off-grid" notes first, per spec.md §4.8.
// Two notes on the exact same beat are never considered too close (chords
// are preserved).
type Space struct {
	In, Out *pipeline.Port
	Mode    SpaceMode
	Value   float64 // bpm (MinBpm) or beats (MinBeats)
}

func NewSpace(mode SpaceMode, value float64) *Space {
	return &Space{In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"), Mode: mode, Value: value}
}

func (s *Space) Name() string              { return "space" }
func (s *Space) Inputs() []*pipeline.Port  { return []*pipeline.Port{s.In} }
func (s *Space) Outputs() []*pipeline.Port { return []*pipeline.Port{s.Out} }
func (s *Space) Prepare() error            { return nil }

func (s *Space) Apply(store *pipeline.Store) error {
	inName, take, err := s.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := s.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	for _, sf := range list {
		if err := s.spaceOne(sf); err != nil {
			return err
		}
	}
	store.Put(outName, list)
	return nil
}

func (s *Space) spaceOne(sf *chart.Simfile) error {
	sf.SortNotes()
	rng := detrand.New(sf.MusicPath, sf.TitleTranslit, sf.DifficultyLabel, "space")

	var tt *timing.ToTime
	if s.Mode == MinBpm {
		var err error
		tt, err = timing.NewToTime(sf.BPMs, sf.OffsetSeconds)
		if err != nil {
			return err
		}
	}

	dist := func(i, j int) float64 {
		if s.Mode == MinBeats {
			return math.Abs(sf.Notes[i].Beat.Float64() - sf.Notes[j].Beat.Float64())
		}
		ti, _ := tt.BeatToTime(sf.Notes[i].Beat)
		tj, _ := tt.BeatToTime(sf.Notes[j].Beat)
		return math.Abs(tj - ti)
	}
	limit := s.Value
	if s.Mode == MinBpm {
		limit = 60/s.Value - minBpmEpsilonSeconds
	}

	var candidates []int
	for i, n := range sf.Notes {
		if n.Kind != chart.HoldTail {
			candidates = append(candidates, i)
		}
	}

	tiebreak := make(map[int]float64, len(candidates))
	for _, i := range candidates {
		tiebreak[i] = rng.Float64()
	}
	sortByOffGridFirst(candidates, sf, tiebreak)

	removed := make(map[int]bool)
	pendingDropTail := map[int32]bool{}

	nearestKeptDist := func(idx int) float64 {
		best := math.Inf(1)
		for k := idx - 1; k >= 0; k-- {
			if removed[k] || sf.Notes[k].Kind == chart.HoldTail {
				continue
			}
			d := dist(idx, k)
			if d > 0 {
				if d < best {
					best = d
				}
				break
			}
		}
		for k := idx + 1; k < len(sf.Notes); k++ {
			if removed[k] || sf.Notes[k].Kind == chart.HoldTail {
				continue
			}
			d := dist(idx, k)
			if d > 0 {
				if d < best {
					best = d
				}
				break
			}
		}
		return best
	}

	for _, idx := range candidates {
		if removed[idx] {
			continue
		}
		if nearestKeptDist(idx) < limit {
			removed[idx] = true
			if sf.Notes[idx].Kind == chart.HoldHead {
				pendingDropTail[sf.Notes[idx].Key] = true
			}
		}
	}

	kept := sf.Notes[:0:0]
	for i, n := range sf.Notes {
		if removed[i] {
			continue
		}
		if n.Kind == chart.HoldTail && pendingDropTail[n.Key] {
			delete(pendingDropTail, n.Key)
			continue
		}
		kept = append(kept, n)
	}
	sf.Notes = kept
	sf.SortNotes()
	return nil
}

// sortByOffGridFirst sorts indices by descending beat Denominator() (the
// higher the denominator the more off-grid the note), breaking ties with
// the per-index deterministic tiebreak value.
func sortByOffGridFirst(idx []int, sf *chart.Simfile, tiebreak map[int]float64) {
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && less(idx[j], idx[j-1], sf, tiebreak); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
}

func less(a, b int, sf *chart.Simfile, tiebreak map[int]float64) bool {
	da, db := sf.Notes[a].Beat.Denominator(), sf.Notes[b].Beat.Denominator()
	if da != db {
		return da > db
	}
	return tiebreak[a] < tiebreak[b]
}
