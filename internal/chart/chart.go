// Package chart implements the StepMania-side chart model: control points,
// notes, and the invariants and beat-iteration helpers the transformation
// stages operate on.
package chart

import (
	"fmt"
	"sort"

	"github.com/osu2sm/osu2sm/internal/beatpos"
)

// ControlPoint is the StepMania analogue of an osu! timing point: always
// absolute, expressed as a beat length in seconds at a given beat.
type ControlPoint struct {
	Beat           beatpos.BeatPos
	BeatLenSeconds float64
}

// Stop is a pause of the given number of seconds at a beat.
type Stop struct {
	Beat    beatpos.BeatPos
	Seconds float64
}

// NoteKind distinguishes a tap from the two ends of a hold.
type NoteKind int

const (
	Hit NoteKind = iota
	HoldHead
	HoldTail
)

func (k NoteKind) String() string {
	switch k {
	case Hit:
		return "Hit"
	case HoldHead:
		return "HoldHead"
	case HoldTail:
		return "HoldTail"
	default:
		return "Unknown"
	}
}

// RemovedKey marks a note as swept: removed but not yet compacted out of
// the slice.
const RemovedKey = -1

// Note is a single playable event in a chart.
type Note struct {
	Kind NoteKind
	Beat beatpos.BeatPos
	Key  int32
}

// Removed reports whether the note has been marked for sweeping.
func (n Note) Removed() bool { return n.Key == RemovedKey }

// Metadata holds the simfile-wide descriptive fields that are not
// chart-specific.
type Metadata struct {
	Title, TitleTranslit     string
	Artist, ArtistTranslit   string
	Subtitle, SubtitleTranslit string

	Banner, Background, Lyrics, CDTitle, MusicPath string

	OffsetSeconds        float64
	PreviewStartSeconds  float64
	PreviewLengthSeconds float64
}

// Simfile is one chart (difficulty) over a piece of music plus its
// metadata, control points, stops, and notes.
type Simfile struct {
	Metadata

	Gamemode        string // gamemode tag, e.g. "dance-single"
	DifficultyLabel string
	DifficultyNum   float64
	Meter           int

	BPMs  []ControlPoint
	Stops []Stop
	Notes []Note
}

// SortNotes sorts Notes by beat, stably preserving insertion order within
// a beat (tails are expected to already precede heads/hits at the same
// beat by construction order where that matters; FixTails restores it
// after any beat-decrementing rewrite).
func (s *Simfile) SortNotes() {
	sort.SliceStable(s.Notes, func(i, j int) bool {
		return s.Notes[i].Beat.Less(s.Notes[j].Beat)
	})
}

// SweepRemoved compacts out notes marked Removed().
func (s *Simfile) SweepRemoved() {
	out := s.Notes[:0]
	for _, n := range s.Notes {
		if !n.Removed() {
			out = append(out, n)
		}
	}
	s.Notes = out
}

// IterBeats yields, via yield, the maximal runs of notes sharing an
// identical beat: (beat, startIdx, endIdx) with endIdx exclusive. Notes
// must already be sorted by beat.
func IterBeats(notes []Note, yield func(beat beatpos.BeatPos, start, end int)) {
	i := 0
	for i < len(notes) {
		j := i + 1
		for j < len(notes) && notes[j].Beat.Equal(notes[i].Beat) {
			j++
		}
		yield(notes[i].Beat, i, j)
		i = j
	}
}

// CountHeads returns the number of non-tail notes in the run notes[start:end].
func CountHeads(notes []Note, start, end int) int {
	n := 0
	for _, note := range notes[start:end] {
		if note.Kind != HoldTail {
			n++
		}
	}
	return n
}

// FixTails walks notes in beat order and resolves the StepMania
// restriction that a hold cannot end on the same beat+key another note
// starts on: when a HoldTail at (beat=b, key=k) is followed, within the
// same beat block, by any note on key k, the tail's beat is decreased by
// one epsilon so it sorts into the previous beat block. Head/tail pairing
// is preserved because heads are never moved.
func (s *Simfile) FixTails() {
	s.SortNotes()
	changed := true
	for changed {
		changed = false
		IterBeats(s.Notes, func(beat beatpos.BeatPos, start, end int) {
			for i := start; i < end; i++ {
				if s.Notes[i].Kind != HoldTail {
					continue
				}
				for j := i + 1; j < end; j++ {
					if s.Notes[j].Key == s.Notes[i].Key {
						s.Notes[i].Beat = s.Notes[i].Beat.Sub(beatpos.Epsilon)
						changed = true
						return
					}
				}
			}
		})
		if changed {
			s.SortNotes()
		}
	}
}

// ValidateInvariants checks the structural invariants spec.md §3 demands:
// BPMs non-empty with positive beat lengths, notes sorted by beat, and
// every hold head matched by exactly one later tail on the same key with
// no intervening note on that key.
func (s *Simfile) ValidateInvariants() error {
	if len(s.BPMs) == 0 {
		return errf("simfile has no control points")
	}
	if !s.BPMs[0].Beat.Equal(beatpos.Zero) {
		return errf("first control point is not at beat 0")
	}
	for i, cp := range s.BPMs {
		if cp.BeatLenSeconds <= 0 {
			return errf("control point %d has non-positive beat length", i)
		}
		if i > 0 && !s.BPMs[i-1].Beat.Less(cp.Beat) {
			return errf("control points are not strictly increasing in beat")
		}
	}
	for i := 1; i < len(s.Notes); i++ {
		if s.Notes[i].Beat.Less(s.Notes[i-1].Beat) {
			return errf("notes are not sorted by beat")
		}
	}

	open := map[int32]int{} // key -> index of open head
	for i, n := range s.Notes {
		switch n.Kind {
		case HoldHead:
			if _, ok := open[n.Key]; ok {
				return errf("key %d has overlapping holds", n.Key)
			}
			open[n.Key] = i
		case HoldTail:
			headIdx, ok := open[n.Key]
			if !ok {
				return errf("key %d has a tail with no head", n.Key)
			}
			if !s.Notes[headIdx].Beat.Less(n.Beat) {
				return errf("key %d tail does not come after its head", n.Key)
			}
			delete(open, n.Key)
		case Hit:
			if _, ok := open[n.Key]; ok {
				return errf("key %d has a hit inside an open hold", n.Key)
			}
		}
	}
	if len(open) > 0 {
		return errf("%d hold(s) never closed", len(open))
	}
	return nil
}

type chartError string

func (e chartError) Error() string { return string(e) }

func errf(format string, args ...any) error {
	return chartError("chart: " + fmt.Sprintf(format, args...))
}
