// Package osuio implements the external collaborator described in
// spec.md §6: the osu! beatmap contract the converter drives. The core
// subsystems (timing, chart, pipeline) depend only on the Beatmap struct
// shape below, never on this package's loader, so a production-grade
// parser can be swapped in without touching them.
package osuio

// Mode constants, per spec.md §6. Only Standard and Mania are supported by
// the converter; Taiko and Catch surface as osu2smerr.ModeNotSupported.
const (
	ModeStandard = 0
	ModeTaiko    = 1
	ModeCatch    = 2
	ModeMania    = 3
)

// HitObject type bit constants, per spec.md §6.
const (
	TypeHit     = 1
	TypeSlider  = 2
	TypeSpinner = 8
	TypeHold    = 128
)

// TimingPoint is the input timing marker: absolute when BeatLenMs > 0
// (defining BPM = 60000/BeatLenMs), inherited when BeatLenMs <= 0 (carrying
// a slider-velocity multiplier of -100/BeatLenMs and not advancing beat
// time).
type TimingPoint struct {
	TimeMs    float64
	BeatLenMs float64
	Meter     int32
}

// IsInherited reports whether the point carries a slider multiplier
// instead of defining a BPM.
func (tp TimingPoint) IsInherited() bool { return tp.BeatLenMs <= 0 }

// SliderMultiplier returns the slider-velocity multiplier an inherited
// point carries. Only meaningful when IsInherited() is true.
func (tp TimingPoint) SliderMultiplier() float64 { return -100 / tp.BeatLenMs }

// HitObject is a single osu! hit object.
type HitObject struct {
	X, Y   float64
	TimeMs float64
	Type   int
	Extras string
}

// Beatmap is the full external contract the converter drives: a parsed
// osu! beatmap, sorted by time unless UnsortedHitObjects says otherwise.
type Beatmap struct {
	Mode             int
	CircleSize       float64 // key count, for mania
	SliderMultiplier float64
	PreviewStartMs   float64

	Title         string
	TitleUnicode  string
	Artist        string
	ArtistUnicode string
	Creator       string
	Version       string
	AudioFilename string

	TimingPoints []TimingPoint
	HitObjects   []HitObject

	// UnsortedHitObjects signals that HitObjects is not yet sorted by
	// TimeMs; the converter re-sorts before driving the timing engine,
	// per the contract in spec.md §6.
	UnsortedHitObjects bool
}

// KeyCount returns the mania key count implied by CircleSize.
func (b *Beatmap) KeyCount() int {
	return int(b.CircleSize + 0.5)
}
