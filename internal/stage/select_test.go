package stage

import (
	"testing"

	"github.com/osu2sm/osu2sm/internal/chart"
)

func simfilesWithMeters(meters ...int) []*chart.Simfile {
	out := make([]*chart.Simfile, len(meters))
	for i, m := range meters {
		out[i] = &chart.Simfile{
			Gamemode:      "dance-single",
			DifficultyNum: float64(m),
			Meter:         m,
			Metadata:      chart.Metadata{MusicPath: "song.mp3"},
		}
	}
	return out
}

func meterSet(list []*chart.Simfile) []int {
	out := make([]int, len(list))
	for i, sf := range list {
		out[i] = int(sf.DifficultyNum)
	}
	return out
}

// TestSelectSpreadKeepsEndpointsAndBestMidpoint is spec.md §8 Scenario 5:
// input meters [1,2,4,8,16], Spread max=3 must keep {1,8,16}.
func TestSelectSpreadKeepsEndpointsAndBestMidpoint(t *testing.T) {
	s := NewSelect(3, Spread)
	store := resolveSingle(t, s, "in")
	store.Put("in", simfilesWithMeters(1, 2, 4, 8, 16))

	if err := s.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := s.Out.Resolved()
	out := store.Peek(outName)

	got := meterSet(out)
	want := []int{1, 8, 16}
	if len(got) != len(want) {
		t.Fatalf("got meters %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got meters %v, want %v", got, want)
			break
		}
	}
}

func TestSelectSpreadKeepsMostCentralWhenTruncatingToOne(t *testing.T) {
	s := NewSelect(1, Spread)
	store := resolveSingle(t, s, "in")
	store.Put("in", simfilesWithMeters(1, 2, 4, 8, 16))

	if err := s.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := s.Out.Resolved()
	out := store.Peek(outName)

	if len(out) != 1 {
		t.Fatalf("got %d simfiles, want 1", len(out))
	}
	// midpoint of [1,16] is 8.5; 8 is closer to it than 4.
	if out[0].DifficultyNum != 8 {
		t.Errorf("kept meter = %v, want 8", out[0].DifficultyNum)
	}
}

func TestSelectEasierKeepsLowestDifficulties(t *testing.T) {
	s := NewSelect(2, Easier)
	store := resolveSingle(t, s, "in")
	store.Put("in", simfilesWithMeters(1, 2, 4, 8, 16))

	if err := s.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := s.Out.Resolved()
	got := meterSet(store.Peek(outName))
	want := []int{1, 2}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got meters %v, want %v", got, want)
	}
}

func TestSelectHarderKeepsHighestDifficulties(t *testing.T) {
	s := NewSelect(2, Harder)
	store := resolveSingle(t, s, "in")
	store.Put("in", simfilesWithMeters(1, 2, 4, 8, 16))

	if err := s.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := s.Out.Resolved()
	got := meterSet(store.Peek(outName))
	want := []int{8, 16}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got meters %v, want %v", got, want)
	}
}

func TestSelectGroupsByMusicAndGamemodeIndependently(t *testing.T) {
	s := NewSelect(1, Spread)
	store := resolveSingle(t, s, "in")

	a := simfilesWithMeters(1, 5)
	a[0].Metadata.MusicPath, a[1].Metadata.MusicPath = "a.mp3", "a.mp3"
	b := simfilesWithMeters(10, 20)
	b[0].Metadata.MusicPath, b[1].Metadata.MusicPath = "b.mp3", "b.mp3"
	store.Put("in", append(a, b...))

	if err := s.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := s.Out.Resolved()
	out := store.Peek(outName)
	if len(out) != 2 {
		t.Fatalf("got %d simfiles, want 1 per music group (2 total)", len(out))
	}
}

func TestSelectDedupKeepsOneRepresentativePerCluster(t *testing.T) {
	s := NewSelect(0, Spread)
	s.DedupDist = 1
	s.DedupBias = 0 // keep easiest of each cluster
	store := resolveSingle(t, s, "in")
	store.Put("in", simfilesWithMeters(1, 1, 2, 10))

	if err := s.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := s.Out.Resolved()
	got := meterSet(store.Peek(outName))
	want := []int{1, 10}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got meters %v, want %v", got, want)
	}
}
