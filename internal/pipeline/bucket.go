package pipeline

import "github.com/osu2sm/osu2sm/internal/osu2smerr"

// PortKind distinguishes the four user-facing bucket-reference forms of
// spec.md §4.9, plus the post-resolution internal form.
type PortKind int

const (
	// KindAuto chains to the previous stage's output (for inputs) or
	// requests a fresh unique name (for outputs not on the last stage).
	KindAuto PortKind = iota
	// KindNull discards writes and reads as empty.
	KindNull
	// KindName is a user-chosen bucket name.
	KindName
	// KindNest carries a sub-pipeline whose own input/output is spliced
	// into this port's place.
	KindNest
	// kindResolved is the internal post-resolution form: a concrete
	// bucket name plus whether this read takes ownership.
	kindResolved
)

// Port is one named bucket reference a stage exposes, either an input or
// an output.
type Port struct {
	Label string // the port's name within the stage, e.g. "in", "out"
	Kind  PortKind

	Name    string  // meaningful when Kind == KindName
	Nested  []Stage // meaningful when Kind == KindNest

	resolved   string
	take       bool
	ownerStage string
}

// AutoPort builds an Auto-kind port.
func AutoPort(label string) *Port { return &Port{Label: label, Kind: KindAuto} }

// NullPort builds a Null-kind port.
func NullPort(label string) *Port { return &Port{Label: label, Kind: KindNull} }

// NamePort builds a user-named port. name must not start with '~'; that
// prefix is reserved for resolver-generated names.
func NamePort(label, name string) *Port { return &Port{Label: label, Kind: KindName, Name: name} }

// NestPort builds a port carrying a sub-pipeline.
func NestPort(label string, sub []Stage) *Port { return &Port{Label: label, Kind: KindNest, Nested: sub} }

// Resolved returns the concrete bucket name and take flag a resolved port
// carries. Calling this before resolution returns an UnresolvedBucket
// error, since it signals a resolver bug rather than a user error.
func (p *Port) Resolved() (name string, take bool, err error) {
	if p.Kind != kindResolved {
		return "", false, &osu2smerr.UnresolvedBucket{Stage: p.ownerStage, Port: p.Label}
	}
	return p.resolved, p.take, nil
}

func (p *Port) markResolved(name string, take bool) {
	p.Kind = kindResolved
	p.resolved = name
	p.take = take
}
