package enrich

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `name,Description,CAS ID
aspirin,pain reliever,50-78-2
xyzzy,,
`

func TestEnrichCSV(t *testing.T) {
	e := aspirinEnricher(t)

	results, err := e.EnrichCSV(context.Background(), strings.NewReader(sampleCSV), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.Line != 2 || first.Err != "" {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if first.Enrichment.CURIE != "CHEBI:15365" || first.Enrichment.Type != "biolink:SmallMolecule" {
		t.Errorf("unexpected enrichment: %+v", first.Enrichment)
	}

	// Unresolvable rows still enrich, with the sentinel type.
	second := results[1]
	if second.Line != 3 || second.Err != "" {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if second.Enrichment.Type != "biolink:NamedThing" || second.Enrichment.Note == "" {
		t.Errorf("unexpected enrichment: %+v", second.Enrichment)
	}
}

func TestEnrichCSVRecordsRowErrors(t *testing.T) {
	e := aspirinEnricher(t)

	// Second row has an empty name, which is a per-row failure.
	csv := "name\naspirin\n\"\"\n"
	results, err := e.EnrichCSV(context.Background(), strings.NewReader(csv), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Err != "" {
		t.Errorf("first row should succeed: %+v", results[0])
	}
	if results[1].Err == "" {
		t.Errorf("second row should record an error: %+v", results[1])
	}
}

func TestEnrichCSVEmptyStream(t *testing.T) {
	e := aspirinEnricher(t)

	results, err := e.EnrichCSV(context.Background(), strings.NewReader(""), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestEnrichGlob(t *testing.T) {
	e := aspirinEnricher(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	write := func(rel, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, rel), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.csv", sampleCSV)
	write(filepath.Join("nested", "b.csv"), "name\naspirin\n")
	write("ignored.txt", "not a csv")

	results, err := e.EnrichGlob(context.Background(), filepath.Join(dir, "**", "*.csv"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d file results, want 2: %+v", len(results), results)
	}
	// Sorted path order.
	if filepath.Base(results[0].Path) != "a.csv" || filepath.Base(results[1].Path) != "b.csv" {
		t.Errorf("unexpected order: %s, %s", results[0].Path, results[1].Path)
	}
	if len(results[0].Rows) != 2 || len(results[1].Rows) != 1 {
		t.Errorf("unexpected row counts: %d, %d", len(results[0].Rows), len(results[1].Rows))
	}
}
