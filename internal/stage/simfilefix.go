package stage

import "github.com/osu2sm/osu2sm/internal/pipeline"

// SimfileFix composes Select's difficulty-spreading/labeling behaviour
// with a FixTails() pass over every surviving chart, per spec.md §4.8.
type SimfileFix struct {
	In, Out *pipeline.Port

	MaxPerGroup int
	Strategy    SelectStrategy
	Targets     []float64
	DedupDist   float64
	DedupBias   float64
	Labels      []string
}

func NewSimfileFix(maxPerGroup int, strategy SelectStrategy) *SimfileFix {
	return &SimfileFix{
		In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"),
		MaxPerGroup: maxPerGroup, Strategy: strategy, DedupBias: 0.5,
	}
}

func (s *SimfileFix) Name() string              { return "simfile_fix" }
func (s *SimfileFix) Inputs() []*pipeline.Port  { return []*pipeline.Port{s.In} }
func (s *SimfileFix) Outputs() []*pipeline.Port { return []*pipeline.Port{s.Out} }
func (s *SimfileFix) Prepare() error            { return nil }

func (s *SimfileFix) Apply(store *pipeline.Store) error {
	inName, take, err := s.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := s.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	result := selectAndLabel(list, s.MaxPerGroup, s.Strategy, s.Targets, s.DedupDist, s.DedupBias, s.Labels)
	for _, sf := range result {
		sf.FixTails()
	}
	store.Put(outName, result)
	return nil
}
