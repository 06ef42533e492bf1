package integration

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"spopconv/internal/config"
	"spopconv/internal/converter"
	"spopconv/internal/ledger"
	"spopconv/internal/serializer"
	"spopconv/pkg/metadata"
)

func TestConversionFlow_CSVAndJSONAgree(t *testing.T) {
	// Path to fixture
	fixturePath := filepath.Join("..", "fixtures", "example-avida-sexual.spop")
	dir := t.TempDir()

	// 1. Ledger (Simulating '-ledger')
	runs, err := ledger.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("ledger.Open failed: %v", err)
	}
	defer runs.Close()

	conv := converter.New(config.Default(), nil).WithRecorder(runs)
	ctx := context.Background()

	// 2. Convert to both formats
	csvRes, err := conv.Convert(ctx, converter.Request{
		InputPath:  fixturePath,
		OutputPath: filepath.Join(dir, "phylogeny.csv"),
		Format:     serializer.FormatCSV,
	})
	if err != nil {
		t.Fatalf("csv Convert failed: %v", err)
	}

	jsonRes, err := conv.Convert(ctx, converter.Request{
		InputPath:  fixturePath,
		OutputPath: filepath.Join(dir, "phylogeny.json"),
		Format:     serializer.FormatJSON,
	})
	if err != nil {
		t.Fatalf("json Convert failed: %v", err)
	}

	// 3. Verification
	f, err := os.Open(csvRes.OutputPath)
	if err != nil {
		t.Fatalf("Failed to open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}

	data, err := os.ReadFile(jsonRes.OutputPath)
	if err != nil {
		t.Fatalf("Failed to read json: %v", err)
	}

	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to parse json: %v", err)
	}

	header := records[0]
	if !slices.Equal(header, jsonRes.Columns) {
		t.Errorf("csv header %q differs from json columns %q", header, jsonRes.Columns)
	}

	if len(records)-1 != len(doc) {
		t.Fatalf("csv has %d rows, json has %d documents", len(records)-1, len(doc))
	}

	// every list cell in the csv parses to the same value the json holds
	ancestorCol := slices.Index(header, "ancestor_list")

	for _, rec := range records[1:] {
		entry, ok := doc[rec[0]]
		if !ok {
			t.Errorf("id %s missing from json", rec[0])
			continue
		}

		var fromCSV, fromJSON []int64
		if err := json.Unmarshal([]byte(rec[ancestorCol]), &fromCSV); err != nil {
			t.Errorf("id %s: csv ancestor_list %q: %v", rec[0], rec[ancestorCol], err)
		}

		if err := json.Unmarshal(entry["ancestor_list"], &fromJSON); err != nil {
			t.Errorf("id %s: json ancestor_list: %v", rec[0], err)
		}

		if !slices.Equal(fromCSV, fromJSON) {
			t.Errorf("id %s: csv %v != json %v", rec[0], fromCSV, fromJSON)
		}
	}

	// 4. History (Simulating '-history')
	recent, err := runs.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("ledger holds %d runs, want 2", len(recent))
	}

	if recent[0].ID != jsonRes.RunID || recent[1].ID != csvRes.RunID {
		t.Errorf("ledger order = [%s %s], want newest first", recent[0].ID, recent[1].ID)
	}

	for _, run := range recent {
		if err := metadata.Verify(run.Output, run.Digest); err != nil {
			t.Errorf("recorded digest for %s: %v", run.Output, err)
		}
	}
}
