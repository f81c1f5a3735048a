package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/osu2sm/osu2sm/internal/chart"
)

// Pipeline is a resolved, linearised stage order ready to run against a
// sequence of beatmap sets.
type Pipeline struct {
	order        []Stage
	inputBucket  string
	outputBucket string
	logger       *slog.Logger
}

// New resolves stages (see Resolve) and wires a caller-chosen input
// bucket name: the driver Puts that set's freshly converted simfiles into
// inputBucket before each Run.
func New(stages []Stage, inputBucket string, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	order, outputBucket, err := Resolve(stages)
	if err != nil {
		return nil, err
	}
	return &Pipeline{order: order, inputBucket: inputBucket, outputBucket: outputBucket, logger: logger}, nil
}

// InputBucket returns the bucket name the driver should Put each set's
// simfiles into before calling Run.
func (p *Pipeline) InputBucket() string { return p.inputBucket }

// OutputBucket returns the bucket name the driver should read after Run
// to retrieve the set's final simfiles.
func (p *Pipeline) OutputBucket() string { return p.outputBucket }

// Run executes every ordinary stage's Apply in resolved order against
// store for one beatmap set, then resets the store. Per-stage errors are
// wrapped with the stage's name and abort the set (spec.md §7: "per-set
// errors abort the set, not the run").
func (p *Pipeline) Run(store *Store, initial []*chart.Simfile) ([]*chart.Simfile, error) {
	store.Reset()
	store.Put(p.inputBucket, initial)

	for _, st := range p.order {
		if err := st.Apply(store); err != nil {
			return nil, fmt.Errorf("stage %q: %w", st.Name(), err)
		}
	}

	out := store.Peek(p.outputBucket)
	result := CloneList(out)
	store.Reset()
	return result, nil
}
