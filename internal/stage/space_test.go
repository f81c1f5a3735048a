package stage

import (
	"testing"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
)

func steadyBpmSimfile(notes ...chart.Note) *chart.Simfile {
	return &chart.Simfile{
		Gamemode: "dance-single",
		BPMs:     []chart.ControlPoint{{Beat: beatpos.Zero, BeatLenSeconds: 0.5}},
		Notes:    notes,
	}
}

// TestSpaceMinBpmScenario6RemovesOneOfTwoCloseNotes is spec.md §8
// Scenario 6: two hits 0.400s apart under 120 BPM (threshold
// 60/120-0.010 = 0.490s); 0.400 < 0.490 so exactly one note survives.
func TestSpaceMinBpmScenario6RemovesOneOfTwoCloseNotes(t *testing.T) {
	sp := NewSpace(MinBpm, 120)
	store := resolveSingle(t, sp, "in")
	sf := steadyBpmSimfile(
		chart.Note{Kind: chart.Hit, Beat: bp(0), Key: 0},
		chart.Note{Kind: chart.Hit, Beat: bp(0.8), Key: 1}, // 0.8 beats * 0.5s/beat = 0.400s
	)
	store.Put("in", []*chart.Simfile{sf})

	if err := sp.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := sp.Out.Resolved()
	out := store.Peek(outName)[0]
	if len(out.Notes) != 1 {
		t.Fatalf("got %d notes, want 1: %+v", len(out.Notes), out.Notes)
	}
}

// TestSpaceMinBpmKeepsNotesAboveThreshold checks the epsilon doesn't
// over-trigger: a gap comfortably past 60/120-0.010 must survive intact.
func TestSpaceMinBpmKeepsNotesAboveThreshold(t *testing.T) {
	sp := NewSpace(MinBpm, 120)
	store := resolveSingle(t, sp, "in")
	sf := steadyBpmSimfile(
		chart.Note{Kind: chart.Hit, Beat: bp(0), Key: 0},
		chart.Note{Kind: chart.Hit, Beat: bp(1), Key: 1}, // 1 beat * 0.5s/beat = 0.500s
	)
	store.Put("in", []*chart.Simfile{sf})

	if err := sp.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := sp.Out.Resolved()
	out := store.Peek(outName)[0]
	if len(out.Notes) != 2 {
		t.Fatalf("got %d notes, want 2 (gap is above threshold): %+v", len(out.Notes), out.Notes)
	}
}

// TestSpaceMinBeatsUsesBeatDistanceDirectlyNoEpsilon checks MinBeats mode
// applies Value as a direct beat-gap cutoff, with no time-domain epsilon.
func TestSpaceMinBeatsUsesBeatDistanceDirectlyNoEpsilon(t *testing.T) {
	sp := NewSpace(MinBeats, 1)
	store := resolveSingle(t, sp, "in")
	sf := steadyBpmSimfile(
		chart.Note{Kind: chart.Hit, Beat: bp(0), Key: 0},
		chart.Note{Kind: chart.Hit, Beat: bp(1), Key: 1}, // exactly at the limit, not closer than it
	)
	store.Put("in", []*chart.Simfile{sf})

	if err := sp.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := sp.Out.Resolved()
	out := store.Peek(outName)[0]
	if len(out.Notes) != 2 {
		t.Fatalf("got %d notes, want 2 (gap exactly at limit is not \"closer than\"): %+v", len(out.Notes), out.Notes)
	}
}

func TestSpacePreservesSameBeatChords(t *testing.T) {
	sp := NewSpace(MinBpm, 120)
	store := resolveSingle(t, sp, "in")
	sf := steadyBpmSimfile(
		chart.Note{Kind: chart.Hit, Beat: bp(0), Key: 0},
		chart.Note{Kind: chart.Hit, Beat: bp(0), Key: 1},
	)
	store.Put("in", []*chart.Simfile{sf})

	if err := sp.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := sp.Out.Resolved()
	out := store.Peek(outName)[0]
	if len(out.Notes) != 2 {
		t.Fatalf("got %d notes, want 2 (chord on same beat must be preserved): %+v", len(out.Notes), out.Notes)
	}
}
