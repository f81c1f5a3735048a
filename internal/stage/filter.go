package stage

import (
	"strings"

	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/pipeline"
)

// FilterExpr is the per-property match expression Filter evaluates
// against a simfile, per spec.md §4.8: Allow/Deny lists, numeric
// comparisons, and Not/And/Or combinators.
type FilterExpr interface {
	Match(sf *chart.Simfile) bool
}

// Field names FilterExpr leaves understand.
const (
	FieldGamemode        = "gamemode"
	FieldDifficultyLabel = "difficulty_label"
	FieldTitle           = "title"
	FieldArtist          = "artist"
	FieldDifficultyNum   = "difficulty_num"
	FieldMeter           = "meter"
)

func stringField(sf *chart.Simfile, field string) (string, bool) {
	switch field {
	case FieldGamemode:
		return sf.Gamemode, true
	case FieldDifficultyLabel:
		return sf.DifficultyLabel, true
	case FieldTitle:
		return sf.Title, true
	case FieldArtist:
		return sf.Artist, true
	default:
		return "", false
	}
}

func numericField(sf *chart.Simfile, field string) (float64, bool) {
	switch field {
	case FieldDifficultyNum:
		return sf.DifficultyNum, true
	case FieldMeter:
		return float64(sf.Meter), true
	default:
		return 0, false
	}
}

// AllowList matches when the named string field, compared
// case-insensitively, is one of Values.
type AllowList struct {
	Field  string
	Values []string
}

func (f AllowList) Match(sf *chart.Simfile) bool {
	v, ok := stringField(sf, f.Field)
	if !ok {
		return false
	}
	for _, want := range f.Values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// DenyList matches when the named string field is none of Values.
type DenyList struct {
	Field  string
	Values []string
}

func (f DenyList) Match(sf *chart.Simfile) bool {
	return !(AllowList(f).Match(sf))
}

// LessThan matches when the named numeric field is less than Value.
type LessThan struct {
	Field string
	Value float64
}

func (f LessThan) Match(sf *chart.Simfile) bool {
	v, ok := numericField(sf, f.Field)
	return ok && v < f.Value
}

// GreaterThan matches when the named numeric field is greater than Value.
type GreaterThan struct {
	Field string
	Value float64
}

func (f GreaterThan) Match(sf *chart.Simfile) bool {
	v, ok := numericField(sf, f.Field)
	return ok && v > f.Value
}

// Not negates Expr.
type Not struct{ Expr FilterExpr }

func (f Not) Match(sf *chart.Simfile) bool { return !f.Expr.Match(sf) }

// And matches when every sub-expression matches.
type And struct{ Exprs []FilterExpr }

func (f And) Match(sf *chart.Simfile) bool {
	for _, e := range f.Exprs {
		if !e.Match(sf) {
			return false
		}
	}
	return true
}

// Or matches when any sub-expression matches.
type Or struct{ Exprs []FilterExpr }

func (f Or) Match(sf *chart.Simfile) bool {
	for _, e := range f.Exprs {
		if e.Match(sf) {
			return true
		}
	}
	return false
}

// Filter drops simfiles that fail Expr, per spec.md §4.8. A nil Expr
// keeps everything.
type Filter struct {
	In, Out *pipeline.Port
	Expr    FilterExpr
}

func NewFilter(expr FilterExpr) *Filter {
	return &Filter{In: pipeline.AutoPort("in"), Out: pipeline.AutoPort("out"), Expr: expr}
}

func (f *Filter) Name() string              { return "filter" }
func (f *Filter) Inputs() []*pipeline.Port  { return []*pipeline.Port{f.In} }
func (f *Filter) Outputs() []*pipeline.Port { return []*pipeline.Port{f.Out} }
func (f *Filter) Prepare() error            { return nil }

func (f *Filter) Apply(store *pipeline.Store) error {
	inName, take, err := f.In.Resolved()
	if err != nil {
		return err
	}
	outName, _, err := f.Out.Resolved()
	if err != nil {
		return err
	}

	list := store.Read(inName, take)
	kept := list[:0:0]
	for _, sf := range list {
		if f.Expr == nil || f.Expr.Match(sf) {
			kept = append(kept, sf)
		}
	}
	store.Put(outName, kept)
	return nil
}
