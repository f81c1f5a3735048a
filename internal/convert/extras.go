package convert

import (
	"strconv"
	"strings"

	"github.com/osu2sm/osu2sm/internal/osu2smerr"
)

// parseHoldEndMs extracts the endTime field from a mania hold object's
// extras string. osu!'s hold extras are "hitSound,endTime:hitSample"; the
// end time is the numeric prefix of the final comma-separated field.
func parseHoldEndMs(raw string) (float64, error) {
	fields := strings.Split(raw, ",")
	last := fields[len(fields)-1]
	numPart := strings.SplitN(last, ":", 2)[0]
	ms, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
	if err != nil {
		return 0, &osu2smerr.MalformedHoldExtras{Raw: raw}
	}
	return ms, nil
}

// parseSpinnerEndMs extracts the endTime field from a spinner's extras
// string: "hitSound,endTime,hitSample".
func parseSpinnerEndMs(raw string) (float64, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 2 {
		return 0, &osu2smerr.MalformedSpinnerExtras{Raw: raw}
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, &osu2smerr.MalformedSpinnerExtras{Raw: raw}
	}
	return ms, nil
}

// sliderExtras is the subset of a slider's extras this converter needs.
type sliderExtras struct {
	Slides       int
	LengthPixels float64
}

// parseSliderExtras parses "hitSound,curveType|curvePoints,slides,length,...".
func parseSliderExtras(raw string) (sliderExtras, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 4 {
		return sliderExtras{}, &osu2smerr.MalformedSliderExtras{Raw: raw}
	}
	slides, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || slides < 1 {
		return sliderExtras{}, &osu2smerr.MalformedSliderExtras{Raw: raw}
	}
	length, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil || length < 0 {
		return sliderExtras{}, &osu2smerr.MalformedSliderExtras{Raw: raw}
	}
	return sliderExtras{Slides: slides, LengthPixels: length}, nil
}
