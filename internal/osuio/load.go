package osuio

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// legacyOffsetMs is added to every timing point's time for beatmaps saved
// with format version 4 or earlier, per spec.md §6.
const legacyOffsetMs = 24

// Load reads a .osu file's text contents into a Beatmap. It implements
// only the subset of the format the converter needs: General/Metadata/
// Difficulty keys, [TimingPoints], and [HitObjects].
func Load(r io.Reader) (*Beatmap, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	bm := &Beatmap{SliderMultiplier: 1.0}
	section := ""
	formatVersion := 14
	firstLine := true

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if firstLine {
			firstLine = false
			if v, ok := parseFormatVersion(line); ok {
				formatVersion = v
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			continue
		}

		switch section {
		case "general", "metadata", "difficulty":
			key, val, ok := splitKeyVal(line)
			if !ok {
				continue
			}
			applyKeyVal(bm, key, val)
		case "timingpoints":
			tp, err := parseTimingPoint(line)
			if err != nil {
				return nil, err
			}
			bm.TimingPoints = append(bm.TimingPoints, tp)
		case "hitobjects":
			ho, err := parseHitObject(line)
			if err != nil {
				return nil, err
			}
			bm.HitObjects = append(bm.HitObjects, ho)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("osuio: reading beatmap: %w", err)
	}

	if formatVersion <= 4 {
		for i := range bm.TimingPoints {
			bm.TimingPoints[i].TimeMs += legacyOffsetMs
		}
		for i := range bm.HitObjects {
			bm.HitObjects[i].TimeMs += legacyOffsetMs
		}
	}

	sort.SliceStable(bm.TimingPoints, func(i, j int) bool {
		return bm.TimingPoints[i].TimeMs < bm.TimingPoints[j].TimeMs
	})

	return bm, nil
}

func parseFormatVersion(line string) (int, bool) {
	const marker = "osu file format v"
	idx := strings.Index(strings.ToLower(line), marker)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(line[idx+len(marker):])
	v, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitKeyVal(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	val := strings.TrimSpace(line[idx+1:])
	return key, val, true
}

func applyKeyVal(bm *Beatmap, key, val string) {
	switch key {
	case "Mode":
		bm.Mode = atoiOr(val, 0)
	case "CircleSize":
		bm.CircleSize = atofOr(val, 4)
	case "SliderMultiplier":
		bm.SliderMultiplier = atofOr(val, 1.0)
	case "PreviewTime":
		bm.PreviewStartMs = atofOr(val, -1)
	case "Title":
		bm.Title = val
	case "TitleUnicode":
		bm.TitleUnicode = val
	case "Artist":
		bm.Artist = val
	case "ArtistUnicode":
		bm.ArtistUnicode = val
	case "Creator":
		bm.Creator = val
	case "Version":
		bm.Version = val
	case "AudioFilename":
		bm.AudioFilename = val
	}
}

func parseTimingPoint(line string) (TimingPoint, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return TimingPoint{}, fmt.Errorf("osuio: malformed timing point %q", line)
	}
	timeMs, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return TimingPoint{}, fmt.Errorf("osuio: malformed timing point time %q: %w", line, err)
	}
	beatLen, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return TimingPoint{}, fmt.Errorf("osuio: malformed timing point beat length %q: %w", line, err)
	}
	meter := int32(4)
	if len(fields) >= 3 {
		meter = int32(atoiOr(fields[2], 4))
	}
	return TimingPoint{TimeMs: timeMs, BeatLenMs: beatLen, Meter: meter}, nil
}

func parseHitObject(line string) (HitObject, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return HitObject{}, fmt.Errorf("osuio: malformed hit object %q", line)
	}
	x := atofOr(fields[0], 0)
	y := atofOr(fields[1], 0)
	timeMs := atofOr(fields[2], 0)
	typeBits := atoiOr(fields[3], 0)
	extras := ""
	if len(fields) > 4 {
		extras = strings.Join(fields[4:], ",")
	}
	return HitObject{X: x, Y: y, TimeMs: timeMs, Type: typeBits, Extras: extras}, nil
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

func atofOr(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}
