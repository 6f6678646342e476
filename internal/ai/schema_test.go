package ai

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalysisSchema_MarshalsStrictJSONSchema(t *testing.T) {
	raw, err := json.Marshal(analysisSchema)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got["type"] != "object" || got["additionalProperties"] != false {
		t.Errorf("root = %v, want strict object", got)
	}
	minerals := got["properties"].(map[string]any)["identifiedMinerals"].(map[string]any)
	items := minerals["items"].(map[string]any)
	wantRequired := []any{"name", "percentage", "description"}
	if diff := cmp.Diff(wantRequired, items["required"]); diff != "" {
		t.Errorf("items.required mismatch (-want +got):\n%s", diff)
	}
	pct := items["properties"].(map[string]any)["percentage"].(map[string]any)
	if pct["type"] != "number" {
		t.Errorf("percentage type = %v, want number", pct["type"])
	}
}

func TestAnalysisSchema_GenAIConversionKeepsOrder(t *testing.T) {
	s := analysisSchema.genaiSchema()
	want := []string{"rockName", "description", "identifiedMinerals", "economicPotential"}
	if diff := cmp.Diff(want, s.PropertyOrdering); diff != "" {
		t.Errorf("property ordering mismatch (-want +got):\n%s", diff)
	}
	if s.Properties["identifiedMinerals"].Items == nil {
		t.Fatal("expected array items schema")
	}
}

func TestStaticProvider_ReplaysFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "analysis.json"), []byte(`{"rockName":"Schist"}`), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewStaticProvider(dir)
	got, err := p.GenerateStructured(context.Background(), StructuredRequest{})
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if got != `{"rockName":"Schist"}` {
		t.Errorf("got %q", got)
	}
	if _, err := p.GenerateText(context.Background(), TextRequest{}); err == nil {
		t.Error("expected error when summary.md is missing")
	}
}
