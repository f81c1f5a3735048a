// Package stage implements the transformation stages of spec.md §4.7/§4.8:
// concrete pipeline.Stage values a user-authored pipeline config chains
// together. Each stage is a tagged-variant struct exposing the same
// narrow pipeline.Stage interface, per spec.md §9's dispatch design.
package stage

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/detrand"
	"github.com/osu2sm/osu2sm/internal/gamemode"
	"github.com/osu2sm/osu2sm/internal/keyalloc"
	"github.com/osu2sm/osu2sm/internal/pipeline"
	"github.com/osu2sm/osu2sm/internal/timing"
)

// Remap converts every simfile it reads from G_in to the gamemode To,
// reallocating keys with a time-weighted allocator while respecting
// hold-note locking, per spec.md §4.7.
type Remap struct {
	In, Out *pipeline.Port

	To           string
	AvoidShuffle bool
	Curve        *keyalloc.Curve
}

// NewRemap returns a Remap stage with default Auto ports.
func NewRemap(to string, avoidShuffle bool, curve *keyalloc.Curve) *Remap {
	return &Remap{
		In:  pipeline.AutoPort("in"),
		Out: pipeline.AutoPort("out"),

		To:           to,
		AvoidShuffle: avoidShuffle,
		Curve:        curve,
	}
}

func (r *Remap) Name() string               { return "remap" }
func (r *Remap) Inputs() []*pipeline.Port   { return []*pipeline.Port{r.In} }
func (r *Remap) Outputs() []*pipeline.Port  { return []*pipeline.Port{r.Out} }
func (r *Remap) Prepare() error              { return nil }

func (r *Remap) Apply(store *pipeline.Store) error {
	inName, take, err := r.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := r.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	result := make([]*chart.Simfile, 0, len(list))
	for _, sf := range list {
		out, err := r.remapOne(sf)
		if err != nil {
			return err
		}
		result = append(result, out)
	}
	store.Put(outName, result)
	return nil
}

func (r *Remap) remapOne(sf *chart.Simfile) (*chart.Simfile, error) {
	inMode, err := gamemode.Lookup(sf.Gamemode)
	if err != nil {
		return nil, err
	}
	outMode, err := gamemode.Lookup(r.To)
	if err != nil {
		return nil, err
	}

	out := pipeline.CloneSimfile(sf)
	out.Gamemode = r.To

	if r.AvoidShuffle && inMode.KeyCount == outMode.KeyCount {
		return out, nil
	}

	tt, err := timing.NewToTime(sf.BPMs, sf.OffsetSeconds)
	if err != nil {
		return nil, err
	}
	rng := detrand.New(sf.MusicPath, sf.TitleTranslit, sf.DifficultyLabel, "rekey")
	alloc := keyalloc.NewAllocator(r.Curve)

	allOut := mapset.NewSet[int32]()
	for k := 0; k < outMode.KeyCount; k++ {
		allOut.Add(int32(k))
	}
	locked := mapset.NewSet[int32]()
	untilBeat := map[int32]beatpos.BeatPos{}
	unlockByTail := map[int32]int32{}

	outNotes := make([]chart.Note, 0, len(out.Notes))
	for _, n := range out.Notes {
		for k, b := range untilBeat {
			if n.Beat.Greater(b) {
				locked.Remove(k)
				delete(untilBeat, k)
			}
		}

		secs, err := tt.BeatToTime(n.Beat)
		if err != nil {
			return nil, err
		}

		if n.Kind == chart.HoldTail {
			kOut, ok := unlockByTail[n.Key]
			if !ok {
				outNotes = append(outNotes, chart.Note{Kind: n.Kind, Beat: n.Beat, Key: chart.RemovedKey})
				continue
			}
			locked.Remove(kOut)
			alloc.Touch(kOut, secs)
			delete(unlockByTail, n.Key)
			outNotes = append(outNotes, chart.Note{Kind: chart.HoldTail, Beat: n.Beat, Key: kOut})
			continue
		}

		candidates := allOut.Difference(locked).ToSlice()
		sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
		kOut, ok := alloc.Alloc(candidates, secs, rng)
		if !ok {
			outNotes = append(outNotes, chart.Note{Kind: n.Kind, Beat: n.Beat, Key: chart.RemovedKey})
			continue
		}

		switch n.Kind {
		case chart.HoldHead:
			locked.Add(kOut)
			unlockByTail[n.Key] = kOut
		case chart.Hit:
			locked.Add(kOut)
			untilBeat[kOut] = n.Beat
		}
		outNotes = append(outNotes, chart.Note{Kind: n.Kind, Beat: n.Beat, Key: kOut})
	}

	out.Notes = outNotes
	out.SweepRemoved()
	out.SortNotes()
	out.FixTails()
	return out, nil
}
