package stage

import "github.com/osu2sm/osu2sm/internal/pipeline"

// Pipe moves one bucket's contents to another, optionally merging into
// the destination's existing contents instead of replacing them, per
// spec.md §4.8.
type Pipe struct {
	In, Out *pipeline.Port
	Merge   bool
}

func NewPipe(merge bool) *Pipe {
	return &Pipe{In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"), Merge: merge}
}

func (p *Pipe) Name() string              { return "pipe" }
func (p *Pipe) Inputs() []*pipeline.Port  { return []*pipeline.Port{p.In} }
func (p *Pipe) Outputs() []*pipeline.Port { return []*pipeline.Port{p.Out} }
func (p *Pipe) Prepare() error            { return nil }

func (p *Pipe) Apply(store *pipeline.Store) error {
	inName, take, err := p.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := p.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	if p.Merge {
		store.Append(outName, list)
	} else {
		store.Put(outName, list)
	}
	return nil
}
