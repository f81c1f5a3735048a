package stage

import (
	"testing"

	"github.com/osu2sm/osu2sm/internal/chart"
)

func TestFilterAllowList(t *testing.T) {
	f := NewFilter(AllowList{Field: FieldGamemode, Values: []string{"dance-single"}})
	store := resolveSingle(t, f, "in")

	list := []*chart.Simfile{
		{Gamemode: "dance-single"},
		{Gamemode: "pump-single"},
	}
	store.Put("in", list)

	if err := f.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := f.Out.Resolved()
	out := store.Peek(outName)
	if len(out) != 1 || out[0].Gamemode != "dance-single" {
		t.Fatalf("unexpected filtered output: %+v", out)
	}
}

func TestFilterAndOrNot(t *testing.T) {
	expr := And{Exprs: []FilterExpr{
		Or{Exprs: []FilterExpr{
			AllowList{Field: FieldGamemode, Values: []string{"dance-single"}},
			AllowList{Field: FieldGamemode, Values: []string{"pump-single"}},
		}},
		Not{Expr: GreaterThan{Field: FieldDifficultyNum, Value: 10}},
	}}
	f := NewFilter(expr)
	store := resolveSingle(t, f, "in")

	list := []*chart.Simfile{
		{Gamemode: "dance-single", DifficultyNum: 5},
		{Gamemode: "dance-single", DifficultyNum: 15},
		{Gamemode: "kb7-single", DifficultyNum: 5},
	}
	store.Put("in", list)

	if err := f.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	outName, _, _ := f.Out.Resolved()
	out := store.Peek(outName)
	if len(out) != 1 || out[0].DifficultyNum != 5 {
		t.Fatalf("unexpected filtered output: %+v", out)
	}
}
