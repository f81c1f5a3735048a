package smio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
)

func bp(f float64) beatpos.BeatPos { return beatpos.FromFloat64(f) }

func simpleSimfile() *chart.Simfile {
	return &chart.Simfile{
		Metadata: chart.Metadata{
			Title:         "Test Song",
			Artist:        "Test Artist",
			MusicPath:     "audio.mp3",
			OffsetSeconds: 0,
		},
		Gamemode:        "dance-single",
		DifficultyLabel: "Hard",
		DifficultyNum:   7,
		Meter:           7,
		BPMs:            []chart.ControlPoint{{Beat: beatpos.Zero, BeatLenSeconds: 0.5}},
		Notes: []chart.Note{
			{Kind: chart.Hit, Beat: bp(0), Key: 0},
			{Kind: chart.Hit, Beat: bp(1), Key: 1},
			{Kind: chart.HoldHead, Beat: bp(2), Key: 2},
			{Kind: chart.HoldTail, Beat: bp(3.5), Key: 2},
		},
	}
}

func TestWriteProducesHeaderAndNotesSection(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []*chart.Simfile{simpleSimfile()}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"#TITLE:Test Song;",
		"#ARTIST:Test Artist;",
		"#MUSIC:audio.mp3;",
		"#BPMS:0.000000=120.000000;",
		"#NOTES:",
		"     dance-single:",
		"     Hard:",
		"     7:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n--- got ---\n%s", want, out)
		}
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), ";") {
		t.Errorf("notes section should end with ';'")
	}
}

func TestWriteMultipleChartsOneHeader(t *testing.T) {
	a := simpleSimfile()
	b := simpleSimfile()
	b.DifficultyLabel = "Challenge"
	b.Meter = 10

	var buf bytes.Buffer
	if err := Write(&buf, []*chart.Simfile{a, b}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "#NOTES:") != 2 {
		t.Errorf("expected 2 #NOTES: sections, got %d", strings.Count(out, "#NOTES:"))
	}
	if strings.Count(out, "#TITLE:") != 1 {
		t.Errorf("expected a single shared header, got %d #TITLE: occurrences", strings.Count(out, "#TITLE:"))
	}
}

func TestMeasureRowGranularityUsesCoarsestCommonDivisor(t *testing.T) {
	// notes at beat 0 and beat 1 only require 4 rows (one row per beat).
	notes := []chart.Note{
		{Kind: chart.Hit, Beat: bp(0), Key: 0},
		{Kind: chart.Hit, Beat: bp(1), Key: 1},
	}
	g := measureRowGranularity(notes, 0)
	if g != beatpos.Denom {
		t.Errorf("granularity = %d, want %d (4 rows/measure)", g, beatpos.Denom)
	}

	// a note at beat 0.5 forces eighth-note resolution (8 rows/measure,
	// granularity = 24 ticks).
	notes = append(notes, chart.Note{Kind: chart.Hit, Beat: bp(0.5), Key: 2})
	g = measureRowGranularity(notes, 0)
	if g != beatpos.Denom/2 {
		t.Errorf("granularity = %d, want %d (8 rows/measure)", g, beatpos.Denom/2)
	}
}

func TestWriteRendersHoldHeadAndTailCharacters(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []*chart.Simfile{simpleSimfile()}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2") || !strings.Contains(out, "3") {
		t.Errorf("expected hold head ('2') and tail ('3') characters in output:\n%s", out)
	}
}

func TestWriteEmptySimfileListNoOp(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty simfile list, got %q", buf.String())
	}
}
