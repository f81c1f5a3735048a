package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/osu2sm/osu2sm/internal/pipeline"
)

func writePipelineFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write pipeline file: %v", err)
	}
	return path
}

func TestLoadPipelineBuildsStagesInOrder(t *testing.T) {
	path := writePipelineFile(t, `[
		{"type": "align", "align_to_beats": 0.25},
		{"type": "remap", "to": "dance-single"},
		{"type": "simultaneous", "max_keys": 2}
	]`)

	stages, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("len(stages) = %d, want 3", len(stages))
	}
	want := []string{"align", "remap", "simultaneous"}
	for i, st := range stages {
		if st.Name() != want[i] {
			t.Errorf("stages[%d].Name() = %q, want %q", i, st.Name(), want[i])
		}
	}
}

func TestLoadPipelineUnknownStageTypeErrors(t *testing.T) {
	path := writePipelineFile(t, `[{"type": "not-a-real-stage"}]`)
	if _, err := LoadPipeline(path); err == nil {
		t.Fatal("LoadPipeline: want error for unknown stage type, got nil")
	}
}

func TestLoadPipelineUnknownPortKindErrors(t *testing.T) {
	path := writePipelineFile(t, `[{"type": "pipe", "in": {"kind": "bogus"}}]`)
	if _, err := LoadPipeline(path); err == nil {
		t.Fatal("LoadPipeline: want error for unknown port kind, got nil")
	}
}

func TestLoadPipelineExplicitNamePortsWireAcrossStages(t *testing.T) {
	path := writePipelineFile(t, `[
		{"type": "pipe", "in": {"kind": "name", "name": "source"}, "out": {"kind": "name", "name": "holding"}},
		{"type": "pipe", "in": {"kind": "name", "name": "holding"}}
	]`)

	stages, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	order, outputBucket, err := pipeline.Resolve(stages)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("len(order) = %d, want 2", len(order))
	}
	if outputBucket == "" {
		t.Error("outputBucket is empty, want the second pipe's resolved output")
	}
}

func TestLoadPipelineNestedPortBuildsSubPipeline(t *testing.T) {
	path := writePipelineFile(t, `[
		{"type": "pipe", "in": {"kind": "name", "name": "source"}, "out": {
			"kind": "nest",
			"nest": [{"type": "align", "align_to_beats": 1}]
		}}
	]`)

	stages, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	order, _, err := pipeline.Resolve(stages)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("len(order) = %d, want 2 (pipe + nested align)", len(order))
	}
	if order[1].Name() != "align" {
		t.Errorf("order[1].Name() = %q, want align", order[1].Name())
	}
}

func TestLoadPipelineFilterExprTree(t *testing.T) {
	path := writePipelineFile(t, `[
		{"type": "filter", "filter": {
			"kind": "and",
			"exprs": [
				{"kind": "gt", "field": "difficulty_num", "value": 3},
				{"kind": "not", "expr": {"kind": "deny", "field": "gamemode", "values": ["dance-double"]}}
			]
		}}
	]`)

	stages, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	if len(stages) != 1 || stages[0].Name() != "filter" {
		t.Fatalf("LoadPipeline: want a single filter stage, got %+v", stages)
	}
}

func TestLoadPipelineMissingFileErrors(t *testing.T) {
	if _, err := LoadPipeline(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("LoadPipeline: want error for missing file, got nil")
	}
}

func TestFingerprintStableAcrossKeyOrderAndWhitespace(t *testing.T) {
	a := writePipelineFile(t, `{"b": 1, "a": 2}`)
	b := writePipelineFile(t, "{\n  \"a\": 2,\n  \"b\": 1\n}\n")

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint(a): %v", err)
	}
	fb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint(b): %v", err)
	}
	if fa != fb {
		t.Errorf("fingerprints differ for semantically identical JSON: %q vs %q", fa, fb)
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := writePipelineFile(t, `{"a": 1}`)
	b := writePipelineFile(t, `{"a": 2}`)

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint(a): %v", err)
	}
	fb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint(b): %v", err)
	}
	if fa == fb {
		t.Error("fingerprints match for different JSON content, want different")
	}
}
