package stage

import (
	"testing"

	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/pipeline"
)

func TestPipeReplacesDestinationByDefault(t *testing.T) {
	p := NewPipe(false)
	store := resolveSingle(t, p, "in")
	outName, _, _ := p.Out.Resolved()
	store.Put(outName, []*chart.Simfile{{Gamemode: "stale"}})

	store.Put("in", []*chart.Simfile{{Gamemode: "fresh"}})
	if err := p.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out := store.Peek(outName)
	if len(out) != 1 || out[0].Gamemode != "fresh" {
		t.Errorf("got %+v, want destination replaced with the single fresh simfile", out)
	}
}

func TestPipeMergeAppendsToDestination(t *testing.T) {
	p := NewPipe(true)
	first := p.In
	*first = *pipeline.NamePort(first.Label, "in")
	second := p.Out
	*second = *pipeline.NamePort(second.Label, "shared")

	if _, _, err := pipeline.Resolve([]pipeline.Stage{p}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	store := pipeline.NewStore()
	store.Put("shared", []*chart.Simfile{{Gamemode: "existing"}})
	store.Put("in", []*chart.Simfile{{Gamemode: "new"}})

	if err := p.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out := store.Peek("shared")
	if len(out) != 2 {
		t.Fatalf("got %d simfiles, want 2 (merge appends rather than replaces)", len(out))
	}
}
