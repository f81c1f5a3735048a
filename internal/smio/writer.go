// Package smio implements the external collaborator described in
// spec.md §6: the StepMania .sm serializer the pipeline's output feeds.
// Bit-compatible in spirit with StepMania 5.1's .sm dialect (not
// byte-audited against a real StepMania binary, since that binary is not
// part of this corpus).
package smio

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/gamemode"
)

const measureTicks = 4 * beatpos.Denom // 4 beats per measure

// Write serialises one song's charts to w as a single .sm file: one
// shared header (taken from simfiles[0]'s metadata and BPMs, since every
// chart of one song is expected to share them) followed by one #NOTES:
// section per chart.
func Write(w io.Writer, simfiles []*chart.Simfile) error {
	if len(simfiles) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)

	writeHeader(bw, simfiles[0])
	for _, sf := range simfiles {
		if err := writeNotes(bw, sf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeHeader(bw *bufio.Writer, meta *chart.Simfile) {
	field := func(tag, value string) { fmt.Fprintf(bw, "#%s:%s;\n", tag, value) }

	field("TITLE", meta.Title)
	field("SUBTITLE", meta.Subtitle)
	field("ARTIST", meta.Artist)
	field("TITLETRANSLIT", meta.TitleTranslit)
	field("SUBTITLETRANSLIT", meta.SubtitleTranslit)
	field("ARTISTTRANSLIT", meta.ArtistTranslit)
	field("CREDIT", "")
	field("BANNER", meta.Banner)
	field("BACKGROUND", meta.Background)
	field("LYRICSPATH", meta.Lyrics)
	field("CDTITLE", meta.CDTitle)
	field("MUSIC", meta.MusicPath)
	fmt.Fprintf(bw, "#OFFSET:%.6f;\n", meta.OffsetSeconds)
	fmt.Fprintf(bw, "#SAMPLESTART:%.6f;\n", meta.PreviewStartSeconds)
	fmt.Fprintf(bw, "#SAMPLELENGTH:%.6f;\n", meta.PreviewLengthSeconds)
	fmt.Fprintf(bw, "#SELECTABLE:YES;\n")
	fmt.Fprintf(bw, "#BPMS:%s;\n", encodeControlPoints(meta.BPMs))
	fmt.Fprintf(bw, "#STOPS:%s;\n", encodeStops(meta.Stops))
}

func encodeControlPoints(cps []chart.ControlPoint) string {
	parts := make([]string, len(cps))
	for i, cp := range cps {
		bpm := 60 / cp.BeatLenSeconds
		parts[i] = fmt.Sprintf("%s=%.6f", formatBeat(cp.Beat), bpm)
	}
	return strings.Join(parts, ",")
}

func encodeStops(stops []chart.Stop) string {
	parts := make([]string, len(stops))
	for i, s := range stops {
		parts[i] = fmt.Sprintf("%s=%.6f", formatBeat(s.Beat), s.Seconds)
	}
	return strings.Join(parts, ",")
}

func formatBeat(b beatpos.BeatPos) string {
	return fmt.Sprintf("%.6f", b.Float64())
}

func writeNotes(bw *bufio.Writer, sf *chart.Simfile) error {
	mode, err := gamemode.Lookup(sf.Gamemode)
	if err != nil {
		return err
	}

	fmt.Fprintf(bw, "\n//---------------%s - %s----------------\n", mode.ID, sf.DifficultyLabel)
	fmt.Fprintf(bw, "#NOTES:\n")
	fmt.Fprintf(bw, "     %s:\n", mode.ID)
	fmt.Fprintf(bw, "     :\n")
	fmt.Fprintf(bw, "     %s:\n", sf.DifficultyLabel)
	fmt.Fprintf(bw, "     %d:\n", sf.Meter)
	fmt.Fprintf(bw, "     0.000,0.000,0.000,0.000,0.000:\n")

	writeMeasures(bw, sf, mode.KeyCount)
	fmt.Fprintf(bw, ";\n")
	return nil
}

func writeMeasures(bw *bufio.Writer, sf *chart.Simfile, keyCount int) {
	notes := append([]chart.Note(nil), sf.Notes...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Beat.Less(notes[j].Beat) })

	numMeasures := 1
	if len(notes) > 0 {
		lastTicks := notes[len(notes)-1].Beat.Ticks()
		numMeasures = int(lastTicks/measureTicks) + 1
	}

	idx := 0
	for m := 0; m < numMeasures; m++ {
		measureStart := int64(m) * measureTicks
		measureEnd := measureStart + measureTicks

		start := idx
		for idx < len(notes) && notes[idx].Beat.Ticks() < measureEnd {
			idx++
		}
		measureNotes := notes[start:idx]

		granularity := measureRowGranularity(measureNotes, measureStart)
		rowCount := int(measureTicks / granularity)

		rows := make([][]byte, rowCount)
		for r := range rows {
			row := make([]byte, keyCount)
			for k := range row {
				row[k] = '0'
			}
			rows[r] = row
		}
		for _, n := range measureNotes {
			offset := n.Beat.Ticks() - measureStart
			row := offset / granularity
			if row < 0 || int(row) >= rowCount || int(n.Key) < 0 || int(n.Key) >= keyCount {
				continue
			}
			rows[row][n.Key] = noteChar(n.Kind)
		}

		for _, row := range rows {
			bw.Write(row)
			bw.WriteByte('\n')
		}
		if m < numMeasures-1 {
			fmt.Fprintf(bw, ",\n")
		}
	}
}

// measureRowGranularity returns the tick width of a row within this
// measure: the largest divisor of a beat (restricted to products of 2
// and 3) common to every note's offset from the measure start, so every
// note lands exactly on a row.
func measureRowGranularity(notes []chart.Note, measureStart int64) int64 {
	g := int64(beatpos.Denom) // coarsest: one row per beat (4 rows/measure)
	for _, n := range notes {
		offset := n.Beat.Ticks() - measureStart
		if offset == 0 {
			continue
		}
		g = gcd(g, offset)
	}
	if g == 0 {
		g = beatpos.Denom
	}
	return g
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return beatpos.Denom
	}
	return a
}

func noteChar(k chart.NoteKind) byte {
	switch k {
	case chart.Hit:
		return '1'
	case chart.HoldHead:
		return '2'
	case chart.HoldTail:
		return '3'
	default:
		return '0'
	}
}
