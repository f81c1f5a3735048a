package stage

import (
	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/pipeline"
)

// Align drops any non-tail note not falling on a multiple of To, per
// spec.md §4.8; dropping a head also drops its tail.
type Align struct {
	In, Out *pipeline.Port
	To      beatpos.BeatPos
}

func NewAlign(to beatpos.BeatPos) *Align {
	return &Align{In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"), To: to}
}

func (a *Align) Name() string              { return "align" }
func (a *Align) Inputs() []*pipeline.Port  { return []*pipeline.Port{a.In} }
func (a *Align) Outputs() []*pipeline.Port { return []*pipeline.Port{a.Out} }
func (a *Align) Prepare() error            { return nil }

func (a *Align) Apply(store *pipeline.Store) error {
	inName, take, err := a.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := a.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	for _, sf := range list {
		a.alignOne(sf)
	}
	store.Put(outName, list)
	return nil
}

func (a *Align) alignOne(sf *chart.Simfile) {
	pendingDropTail := map[int32]bool{}
	kept := sf.Notes[:0:0]
	for _, n := range sf.Notes {
		if n.Kind == chart.HoldTail {
			if pendingDropTail[n.Key] {
				delete(pendingDropTail, n.Key)
				continue
			}
			kept = append(kept, n)
			continue
		}
		if !n.Beat.IsAligned(a.To) {
			if n.Kind == chart.HoldHead {
				pendingDropTail[n.Key] = true
			}
			continue
		}
		kept = append(kept, n)
	}
	sf.Notes = kept
	sf.SortNotes()
}
