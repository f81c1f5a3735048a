package stage

import (
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/detrand"
	"github.com/osu2sm/osu2sm/internal/pipeline"
)

// Simultaneous caps the number of notes sounding at once within any beat
// block to MaxKeys, uniformly removing excess fresh hits/heads (removing
// a head also removes its tail), per spec.md §4.8.
type Simultaneous struct {
	In, Out *pipeline.Port
	MaxKeys int
}

func NewSimultaneous(maxKeys int) *Simultaneous {
	return &Simultaneous{In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"), MaxKeys: maxKeys}
}

func (s *Simultaneous) Name() string              { return "simultaneous" }
func (s *Simultaneous) Inputs() []*pipeline.Port  { return []*pipeline.Port{s.In} }
func (s *Simultaneous) Outputs() []*pipeline.Port { return []*pipeline.Port{s.Out} }
func (s *Simultaneous) Prepare() error            { return nil }

func (s *Simultaneous) Apply(store *pipeline.Store) error {
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
		s.limitOne(sf)
	}
	store.Put(outName, list)
	return nil
}

// limitOne walks sf's notes one beat block at a time. holding tracks
// out-keys whose hold started on an earlier beat and has not yet ended;
// pendingDropTail marks a key whose head was just removed, so its tail
// (whenever it arrives) is removed too.
func (s *Simultaneous) limitOne(sf *chart.Simfile) {
	sf.SortNotes()
	rng := detrand.New(sf.MusicPath, sf.TitleTranslit, sf.DifficultyLabel, "simultaneous")

	holding := map[int32]bool{}
	pendingDropTail := map[int32]bool{}

	i := 0
	for i < len(sf.Notes) {
		j := i + 1
		for j < len(sf.Notes) && sf.Notes[j].Beat.Equal(sf.Notes[i].Beat) {
			j++
		}

		for idx := i; idx < j; idx++ {
			if sf.Notes[idx].Kind != chart.HoldTail {
				continue
			}
			if pendingDropTail[sf.Notes[idx].Key] {
				delete(pendingDropTail, sf.Notes[idx].Key)
				sf.Notes[idx].Key = chart.RemovedKey
			} else {
				delete(holding, sf.Notes[idx].Key)
			}
		}

		var fresh []int
		for idx := i; idx < j; idx++ {
			if sf.Notes[idx].Kind != chart.HoldTail {
				fresh = append(fresh, idx)
			}
		}

		total := len(holding) + len(fresh)
		if total > s.MaxKeys && len(fresh) > 0 {
			excess := total - s.MaxKeys
			if excess > len(fresh) {
				excess = len(fresh)
			}
			rng.Shuffle(len(fresh), func(a, b int) { fresh[a], fresh[b] = fresh[b], fresh[a] })
			for _, idx := range fresh[:excess] {
				n := &sf.Notes[idx]
				if n.Kind == chart.HoldHead {
					pendingDropTail[n.Key] = true
				}
				n.Key = chart.RemovedKey
			}
			fresh = fresh[excess:]
		}
		for _, idx := range fresh {
			n := sf.Notes[idx]
			if n.Kind == chart.HoldHead && n.Key != chart.RemovedKey {
				holding[n.Key] = true
			}
		}

		i = j
	}

	sf.SweepRemoved()
	sf.SortNotes()
	sf.FixTails()
}
