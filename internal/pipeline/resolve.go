package pipeline

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/osu2sm/osu2sm/internal/osu2smerr"
)

// outLabel is the convention this package adopts for which output port
// chains Auto inputs forward: a stage with more than one output (Pipe's
// optional merge target, say) marks exactly one "out" to participate in
// auto-chaining; any other output ports must be explicitly named or
// wired by the user.
const outLabel = "out"

// Resolve runs the resolution algorithm of spec.md §4.9 over a
// user-ordered list of stages: it walks left to right threading
// last_auto_out, splices nested sub-pipelines into the linear order,
// rejects reserved '~' names from user input, computes last-read
// ownership transfer, and calls Prepare on every stage in final order.
// It returns the linear execution order and the name of the pipeline's
// terminal output bucket (the resolved name of the final stage's primary
// Auto output, if any).
func Resolve(stages []Stage) (order []Stage, outputBucket string, err error) {
	claimed := mapset.NewSet[string]()
	order, outputBucket, err = resolveChain(stages, "", "", claimed)
	if err != nil {
		return nil, "", err
	}
	computeLastRead(order)
	for _, st := range order {
		if err := st.Prepare(); err != nil {
			return nil, "", fmt.Errorf("preparing stage %q: %w", st.Name(), err)
		}
	}
	return order, outputBucket, nil
}

func freshBucketName(claimed mapset.Set[string]) string {
	for {
		name := "~auto-" + uuid.NewString()
		if !claimed.Contains(name) {
			claimed.Add(name)
			return name
		}
	}
}

// resolveChain resolves one (possibly nested) list of stages. initialAutoIn
// seeds last_auto_out for the first stage's Auto inputs (empty for a
// pipeline with no chained predecessor, i.e. an entry stage). If
// forcedFinalOut is non-empty, the final stage's primary Auto output (if
// any) resolves to that name instead of a fresh one — this is how a
// Nest'd sub-pipeline's output is wired back into the bucket its parent
// port allocated.
func resolveChain(stages []Stage, initialAutoIn, forcedFinalOut string, claimed mapset.Set[string]) ([]Stage, string, error) {
	lastAutoOut := initialAutoIn
	var order []Stage

	for i, st := range stages {
		isLast := i == len(stages)-1

		for _, p := range st.Inputs() {
			p.ownerStage = st.Name()
			switch p.Kind {
			case KindAuto:
				if lastAutoOut == "" {
					return nil, "", &osu2smerr.EmptyPipelineSlot{Stage: st.Name(), Port: p.Label}
				}
				p.markResolved(lastAutoOut, false)
			case KindNull:
				p.markResolved("", false)
			case KindName:
				if strings.HasPrefix(p.Name, "~") {
					return nil, "", &osu2smerr.ReservedBucketName{Name: p.Name}
				}
				claimed.Add(p.Name)
				p.markResolved(p.Name, false)
			case KindNest:
				into := freshBucketName(claimed)
				subOrder, finalOut, err := resolveChain(p.Nested, "", into, claimed)
				if err != nil {
					return nil, "", err
				}
				order = append(order, subOrder...)
				p.markResolved(finalOut, false)
			default:
				return nil, "", &osu2smerr.UnresolvedBucket{Stage: st.Name(), Port: p.Label}
			}
		}

		order = append(order, st)

		for _, p := range st.Outputs() {
			p.ownerStage = st.Name()
			switch p.Kind {
			case KindAuto:
				var name string
				if isLast && p.Label == outLabel && forcedFinalOut != "" {
					name = forcedFinalOut
				} else {
					name = freshBucketName(claimed)
				}
				p.markResolved(name, false)
				if p.Label == outLabel {
					lastAutoOut = name
				}
			case KindNull:
				p.markResolved("", false)
			case KindName:
				if strings.HasPrefix(p.Name, "~") {
					return nil, "", &osu2smerr.ReservedBucketName{Name: p.Name}
				}
				claimed.Add(p.Name)
				p.markResolved(p.Name, false)
				if p.Label == outLabel {
					lastAutoOut = p.Name
				}
			case KindNest:
				from := freshBucketName(claimed)
				subOrder, finalOut, err := resolveChain(p.Nested, from, "", claimed)
				if err != nil {
					return nil, "", err
				}
				order = append(order, subOrder...)
				p.markResolved(from, false)
				if p.Label == outLabel {
					lastAutoOut = finalOut
				}
			default:
				return nil, "", &osu2smerr.UnresolvedBucket{Stage: st.Name(), Port: p.Label}
			}
		}
	}

	return order, lastAutoOut, nil
}

// computeLastRead walks the resolved order and flips take=true on each
// bucket name's final reading input port, so the last stage to read a
// bucket consumes it instead of cloning.
func computeLastRead(order []Stage) {
	last := map[string]*Port{}
	for _, st := range order {
		for _, p := range st.Inputs() {
			if p.resolved == "" {
				continue
			}
			last[p.resolved] = p
		}
	}
	for _, p := range last {
		p.take = true
	}
}
