// Package osu2smerr collects the error kinds the core surfaces to its
// callers, grounded on the teacher's fmt.Errorf(...: %w) wrapping
// convention (see internal/storage and internal/scanner in the corpus this
// module was adapted from).
package osu2smerr

import "fmt"

// ModeNotSupported is returned when a beatmap's game mode is neither
// osu!standard (0) nor osu!mania (3).
type ModeNotSupported struct {
	Mode int
}

func (e *ModeNotSupported) Error() string {
	return fmt.Sprintf("osu2sm: mode %d is not supported (only standard=0 and mania=3)", e.Mode)
}

// NoAbsoluteTimingPoint is returned when a beatmap carries no absolute
// (non-inherited) timing point at all; the timing engine cannot be seeded.
var NoAbsoluteTimingPoint = fmt.Errorf("osu2sm: beatmap has no absolute timing point")

// InvalidKeyCount is returned when a requested or parsed key count is not a
// usable positive integer.
type InvalidKeyCount struct {
	KeyCount int
}

func (e *InvalidKeyCount) Error() string {
	return fmt.Sprintf("osu2sm: invalid key count %d", e.KeyCount)
}

// KeyOutOfRange is returned when a computed key index falls outside
// [0, KeyCount).
type KeyOutOfRange struct {
	Key      int
	KeyCount int
}

func (e *KeyOutOfRange) Error() string {
	return fmt.Sprintf("osu2sm: key %d out of range for %d-key chart", e.Key, e.KeyCount)
}

// MalformedHoldExtras is returned when a mania hold's extras field cannot
// be parsed for its end time.
type MalformedHoldExtras struct {
	Raw string
}

func (e *MalformedHoldExtras) Error() string {
	return fmt.Sprintf("osu2sm: malformed hold extras %q", e.Raw)
}

// MalformedSliderExtras is returned when a standard-mode slider's extras
// cannot be parsed for slide count and length.
type MalformedSliderExtras struct {
	Raw string
}

func (e *MalformedSliderExtras) Error() string {
	return fmt.Sprintf("osu2sm: malformed slider extras %q", e.Raw)
}

// MalformedSpinnerExtras is returned when a spinner's extras cannot be
// parsed for its end time.
type MalformedSpinnerExtras struct {
	Raw string
}

func (e *MalformedSpinnerExtras) Error() string {
	return fmt.Sprintf("osu2sm: malformed spinner extras %q", e.Raw)
}

// NonMonotonicHitObject is returned when the caller feeds the timing
// engine hit-object times that are not monotonically non-decreasing. The
// contract (spec.md §6) places sorting on the caller.
type NonMonotonicHitObject struct {
	PrevMs, GotMs float64
}

func (e *NonMonotonicHitObject) Error() string {
	return fmt.Sprintf("osu2sm: non-monotonic hit object time: %.3fms after %.3fms", e.GotMs, e.PrevMs)
}

// EmptyPipelineSlot is returned when an Auto input bucket port has no
// predecessor to chain from.
type EmptyPipelineSlot struct {
	Stage string
	Port  string
}

func (e *EmptyPipelineSlot) Error() string {
	return fmt.Sprintf("osu2sm: stage %q input %q is Auto but has no predecessor", e.Stage, e.Port)
}

// ReservedBucketName is returned when a user-supplied bucket name begins
// with the reserved '~' prefix.
type ReservedBucketName struct {
	Name string
}

func (e *ReservedBucketName) Error() string {
	return fmt.Sprintf("osu2sm: bucket name %q uses the reserved '~' prefix", e.Name)
}

// UnresolvedBucket indicates a resolver bug: a stage is being run against a
// bucket port that never went through resolution.
type UnresolvedBucket struct {
	Stage string
	Port  string
}

func (e *UnresolvedBucket) Error() string {
	return fmt.Sprintf("osu2sm: internal error: stage %q port %q was never resolved", e.Stage, e.Port)
}

// RatingRequired is returned when a stage needs a finite difficulty_num but
// received NaN.
var RatingRequired = fmt.Errorf("osu2sm: stage requires a finite difficulty rating")

// InvariantViolated reports a sanity-check failure in a stage such as
// Align or Space.
type InvariantViolated struct {
	Detail string
}

func (e *InvariantViolated) Error() string {
	return fmt.Sprintf("osu2sm: invariant violated: %s", e.Detail)
}
