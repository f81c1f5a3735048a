package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/osu2sm/osu2sm/internal/beatpos"
	"github.com/osu2sm/osu2sm/internal/keyalloc"
	"github.com/osu2sm/osu2sm/internal/pipeline"
	"github.com/osu2sm/osu2sm/internal/stage"
)

// portSpec is the JSON shape of a pipeline.Port: a tagged variant over
// the four port kinds spec.md §4.9 defines, per the "tagged variant of
// concrete stage configs" dispatch design spec.md §9 calls for.
type portSpec struct {
	Kind string      `json:"kind"` // "auto", "null", "name", "nest"
	Name string      `json:"name,omitempty"`
	Nest []stageSpec `json:"nest,omitempty"`
}

func (p *portSpec) toPort(label string) (*pipeline.Port, error) {
	if p == nil {
		return pipeline.AutoPort(label), nil
	}
	switch p.Kind {
	case "", "auto":
		return pipeline.AutoPort(label), nil
	case "null":
		return pipeline.NullPort(label), nil
	case "name":
		if p.Name == "" {
			return nil, fmt.Errorf("config: port %q of kind name requires a name", label)
		}
		return pipeline.NamePort(label, p.Name), nil
	case "nest":
		subs, err := buildStages(p.Nest)
		if err != nil {
			return nil, fmt.Errorf("config: nested pipeline for port %q: %w", label, err)
		}
		return pipeline.NestPort(label, subs), nil
	default:
		return nil, fmt.Errorf("config: unknown port kind %q", p.Kind)
	}
}

// stageSpec is the JSON shape of one pipeline stage: a "type" tag plus
// the union of every concrete stage's fields, each used only by the
// stage types that need it.
type stageSpec struct {
	Type string    `json:"type"`
	In   *portSpec `json:"in,omitempty"`
	Out  *portSpec `json:"out,omitempty"`

	// remap
	To           string                `json:"to,omitempty"`
	AvoidShuffle bool                  `json:"avoid_shuffle,omitempty"`
	Curve        []keyalloc.CurvePoint `json:"curve,omitempty"`

	// align
	AlignToBeats float64 `json:"align_to_beats,omitempty"`

	// simultaneous
	MaxKeys int `json:"max_keys,omitempty"`

	// space
	SpaceMode  string  `json:"space_mode,omitempty"` // "min_bpm", "min_beats"
	SpaceValue float64 `json:"space_value,omitempty"`

	// rate
	RateMethod         string             `json:"rate_method,omitempty"` // "note_count", "density", "gap"
	LogTransform       bool               `json:"log_transform,omitempty"`
	HaloBeats          float64            `json:"halo_beats,omitempty"`
	Lp                 float64            `json:"lp,omitempty"`
	Scale              float64            `json:"scale,omitempty"`
	Offset             float64            `json:"offset,omitempty"`
	WriteDifficultyNum bool               `json:"write_difficulty_num,omitempty"`
	Table              map[string]float64 `json:"table,omitempty"`

	// filter
	Filter *filterSpec `json:"filter,omitempty"`

	// select / simfile_fix
	MaxPerGroup int       `json:"max_per_group,omitempty"`
	Strategy    string    `json:"strategy,omitempty"` // "spread", "closest_match", "easier", "harder"
	Targets     []float64 `json:"targets,omitempty"`
	DedupDist   float64   `json:"dedup_dist,omitempty"`
	DedupBias   float64   `json:"dedup_bias,omitempty"`
	Labels      []string  `json:"labels,omitempty"`

	// pipe
	Merge bool `json:"merge,omitempty"`
}

// filterSpec mirrors stage.FilterExpr as a tagged JSON tree.
type filterSpec struct {
	Kind   string       `json:"kind"` // "allow", "deny", "lt", "gt", "not", "and", "or"
	Field  string       `json:"field,omitempty"`
	Values []string     `json:"values,omitempty"`
	Value  float64      `json:"value,omitempty"`
	Expr   *filterSpec  `json:"expr,omitempty"`
	Exprs  []filterSpec `json:"exprs,omitempty"`
}

func (f *filterSpec) toExpr() (stage.FilterExpr, error) {
	if f == nil {
		return nil, fmt.Errorf("config: filter stage requires a filter expression")
	}
	switch f.Kind {
	case "allow":
		return stage.AllowList{Field: f.Field, Values: f.Values}, nil
	case "deny":
		return stage.DenyList{Field: f.Field, Values: f.Values}, nil
	case "lt":
		return stage.LessThan{Field: f.Field, Value: f.Value}, nil
	case "gt":
		return stage.GreaterThan{Field: f.Field, Value: f.Value}, nil
	case "not":
		inner, err := f.Expr.toExpr()
		if err != nil {
			return nil, err
		}
		return stage.Not{Expr: inner}, nil
	case "and":
		exprs, err := toExprList(f.Exprs)
		if err != nil {
			return nil, err
		}
		return stage.And{Exprs: exprs}, nil
	case "or":
		exprs, err := toExprList(f.Exprs)
		if err != nil {
			return nil, err
		}
		return stage.Or{Exprs: exprs}, nil
	default:
		return nil, fmt.Errorf("config: unknown filter kind %q", f.Kind)
	}
}

func toExprList(specs []filterSpec) ([]stage.FilterExpr, error) {
	exprs := make([]stage.FilterExpr, len(specs))
	for i := range specs {
		e, err := specs[i].toExpr()
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

func curveOrNil(points []keyalloc.CurvePoint) *keyalloc.Curve {
	if len(points) == 0 {
		return keyalloc.NewCurve([]keyalloc.CurvePoint{{Seconds: 0, Weight: 1}})
	}
	return keyalloc.NewCurve(points)
}

func selectStrategy(s string) (stage.SelectStrategy, error) {
	switch s {
	case "", "spread":
		return stage.Spread, nil
	case "closest_match":
		return stage.ClosestMatch, nil
	case "easier":
		return stage.Easier, nil
	case "harder":
		return stage.Harder, nil
	default:
		return 0, fmt.Errorf("config: unknown select strategy %q", s)
	}
}

// buildStage converts one stageSpec into a concrete pipeline.Stage,
// wiring its ports from the spec's in/out (or the stage's own Auto
// defaults when omitted).
func buildStage(s stageSpec) (pipeline.Stage, error) {
	switch s.Type {
	case "remap":
		st := stage.NewRemap(s.To, s.AvoidShuffle, curveOrNil(s.Curve))
		return withPorts(st, st.In, st.Out, s)
	case "align":
		st := stage.NewAlign(beatpos.FromFloat64(s.AlignToBeats))
		return withPorts(st, st.In, st.Out, s)
	case "simultaneous":
		st := stage.NewSimultaneous(s.MaxKeys)
		return withPorts(st, st.In, st.Out, s)
	case "space":
		mode, err := spaceMode(s.SpaceMode)
		if err != nil {
			return nil, err
		}
		st := stage.NewSpace(mode, s.SpaceValue)
		return withPorts(st, st.In, st.Out, s)
	case "rate":
		method, err := rateMethod(s.RateMethod)
		if err != nil {
			return nil, err
		}
		st := stage.NewRate(method, s.Scale, s.Offset)
		st.LogTransform = s.LogTransform
		if s.HaloBeats != 0 {
			st.HaloBeats = s.HaloBeats
		}
		if s.Lp != 0 {
			st.Lp = s.Lp
		}
		st.WriteDifficultyNum = s.WriteDifficultyNum
		st.Table = s.Table
		return withPorts(st, st.In, st.Out, s)
	case "filter":
		expr, err := s.Filter.toExpr()
		if err != nil {
			return nil, err
		}
		st := stage.NewFilter(expr)
		return withPorts(st, st.In, st.Out, s)
	case "select":
		strategy, err := selectStrategy(s.Strategy)
		if err != nil {
			return nil, err
		}
		st := stage.NewSelect(s.MaxPerGroup, strategy)
		st.Targets, st.DedupDist, st.DedupBias, st.Labels = s.Targets, s.DedupDist, fallbackBias(s.DedupBias), s.Labels
		return withPorts(st, st.In, st.Out, s)
	case "simfile_fix":
		strategy, err := selectStrategy(s.Strategy)
		if err != nil {
			return nil, err
		}
		st := stage.NewSimfileFix(s.MaxPerGroup, strategy)
		st.Targets, st.DedupDist, st.DedupBias, st.Labels = s.Targets, s.DedupDist, fallbackBias(s.DedupBias), s.Labels
		return withPorts(st, st.In, st.Out, s)
	case "pipe":
		st := stage.NewPipe(s.Merge)
		return withPorts(st, st.In, st.Out, s)
	default:
		return nil, fmt.Errorf("config: unknown stage type %q", s.Type)
	}
}

func fallbackBias(b float64) float64 {
	if b == 0 {
		return 0.5
	}
	return b
}

func spaceMode(s string) (stage.SpaceMode, error) {
	switch s {
	case "", "min_bpm":
		return stage.MinBpm, nil
	case "min_beats":
		return stage.MinBeats, nil
	default:
		return 0, fmt.Errorf("config: unknown space mode %q", s)
	}
}

func rateMethod(s string) (stage.RateMethod, error) {
	switch s {
	case "", "note_count":
		return stage.NoteCount, nil
	case "density":
		return stage.Density, nil
	case "gap":
		return stage.Gap, nil
	default:
		return 0, fmt.Errorf("config: unknown rate method %q", s)
	}
}

// withPorts overwrites a freshly constructed stage's In/Out ports with
// the spec's, when given, then returns it as a pipeline.Stage.
func withPorts(st pipeline.Stage, in, out *pipeline.Port, s stageSpec) (pipeline.Stage, error) {
	if s.In != nil {
		p, err := s.In.toPort("in")
		if err != nil {
			return nil, err
		}
		*in = *p
	}
	if s.Out != nil {
		p, err := s.Out.toPort("out")
		if err != nil {
			return nil, err
		}
		*out = *p
	}
	return st, nil
}

func buildStages(specs []stageSpec) ([]pipeline.Stage, error) {
	stages := make([]pipeline.Stage, 0, len(specs))
	for i, s := range specs {
		st, err := buildStage(s)
		if err != nil {
			return nil, fmt.Errorf("config: stage %d (%s): %w", i, s.Type, err)
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// LoadPipeline reads and deserialises the stage list at path into
// concrete pipeline.Stage values, ready for pipeline.New.
func LoadPipeline(path string) ([]pipeline.Stage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read pipeline file: %w", err)
	}
	var specs []stageSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("config: parse pipeline file: %w", err)
	}
	return buildStages(specs)
}

// Fingerprint returns a canonical string capturing a pipeline config's
// file contents, for the incremental cache's config-hash check: any change
// to the file's JSON content invalidates every cached set, while changes
// to whitespace or object key order do not.
func Fingerprint(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read pipeline file: %w", err)
	}
	// Re-marshal through a canonical (sorted-key) form so insignificant
	// whitespace/ordering differences in the source file don't appear as
	// configuration changes.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("config: parse pipeline file: %w", err)
	}
	canonical, err := marshalSorted(generic)
	if err != nil {
		return "", fmt.Errorf("config: canonicalize pipeline file: %w", err)
	}
	return canonical, nil
}

func marshalSorted(v any) (string, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			kb, _ := json.Marshal(k)
			sub, err := marshalSorted(val[k])
			if err != nil {
				return "", err
			}
			out += string(kb) + ":" + sub
		}
		return out + "}", nil
	case []any:
		out := "["
		for i, e := range val {
			if i > 0 {
				out += ","
			}
			sub, err := marshalSorted(e)
			if err != nil {
				return "", err
			}
			out += sub
		}
		return out + "]", nil
	default:
		b, err := json.Marshal(val)
		return string(b), err
	}
}
