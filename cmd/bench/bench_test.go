package bench

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/common"
	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/rcrowley/go-metrics"
)

func testConfig(providers ...string) common.Config {
	config := common.DefaultConfig()
	config.Providers = providers
	config.Durable = false
	config.LogLevel = "error"
	return config
}

func TestGenerateTransactions(t *testing.T) {
	txs := generateTransactions(100)
	if len(txs) != 100 {
		t.Fatalf("Expected 100 transactions, got %d", len(txs))
	}

	seen := make(map[model.Indexable]bool)
	for _, tx := range txs {
		if tx.key.Len() != KeyWidth {
			t.Errorf("Expected key width %d, got %d", KeyWidth, tx.key.Len())
		}
		if len(tx.record.Bytes()) != model.TransactionTrytesSize {
			t.Errorf("Expected %d trytes, got %d", model.TransactionTrytesSize, len(tx.record.Bytes()))
		}
		if tx.record.Column() != model.ColumnTransaction {
			t.Errorf("Expected transaction column, got %s", tx.record.Column())
		}
		if seen[tx.key] {
			t.Errorf("Duplicate key %s", tx.key)
		}
		seen[tx.key] = true
	}
}

func TestRun(t *testing.T) {
	for _, providers := range [][]string{{common.ProviderMemory}, {common.ProviderMemory, common.ProviderLSM}} {
		t.Run(providers[len(providers)-1], func(t *testing.T) {
			registry := metrics.NewRegistry()
			results, err := Run(Options{
				Txs:        20,
				Iterations: 2,
				Warmups:    1,
				Skip:       []string{"drop-all"},
				Dir:        t.TempDir(),
				Config:     testConfig(providers...),
			}, registry)
			if err != nil {
				t.Fatalf("Unexpected error during Run: %v", err)
			}

			if len(results) != len(scenarios) {
				t.Fatalf("Expected %d results, got %d", len(scenarios), len(results))
			}
			for _, r := range results {
				if r.Scenario == "drop-all" {
					if !r.Skipped {
						t.Errorf("Expected drop-all to be skipped")
					}
					if registry.Get("drop-all") != nil {
						t.Errorf("Skipped scenario must not register a timer")
					}
					continue
				}
				if r.Skipped {
					t.Errorf("Scenario %s should not be skipped", r.Scenario)
				}
				if r.Iterations != 2 {
					t.Errorf("Scenario %s: expected 2 measured iterations, got %d", r.Scenario, r.Iterations)
				}
				if r.Txs != 20 {
					t.Errorf("Scenario %s: expected 20 txs, got %d", r.Scenario, r.Txs)
				}
				if registry.Get(r.Scenario) == nil {
					t.Errorf("Scenario %s: timer not registered", r.Scenario)
				}
			}
		})
	}

	t.Run("InvalidOptions", func(t *testing.T) {
		if _, err := Run(Options{Txs: 0, Iterations: 1, Dir: t.TempDir(), Config: testConfig("memory")}, metrics.NewRegistry()); err == nil {
			t.Errorf("Expected an error for zero transactions")
		}
	})

	t.Run("UnknownSkip", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Run(Options{Txs: 5, Iterations: 1, Skip: []string{"persit"}, Dir: dir, Config: testConfig("memory")}, metrics.NewRegistry())
		if err == nil || !strings.Contains(err.Error(), "persit") {
			t.Errorf("Expected an error naming the unknown scenario, got %v", err)
		}
		if err := ValidateSkip(Scenarios()); err != nil {
			t.Errorf("Every scenario name must be accepted, got %v", err)
		}
	})

	t.Run("ScenarioDataRemoved", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Run(Options{Txs: 5, Iterations: 1, Dir: dir, Config: testConfig("lsm")}, metrics.NewRegistry())
		if err != nil {
			t.Fatalf("Unexpected error during Run: %v", err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected an empty directory after the run, found %d entries", len(entries))
		}
	})
}

func TestWriteResultsToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	results := []Result{
		{Scenario: "persist", Txs: 10, Iterations: 3},
		{Scenario: "delete", Skipped: true},
	}
	if err := writeResultsToCSV(path, results, testConfig("memory")); err != nil {
		t.Fatalf("Unexpected error during writeResultsToCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d rows", len(rows))
	}
	if rows[1][0] != "persist" || rows[2][1] != "true" {
		t.Errorf("Unexpected rows %v", rows[1:])
	}
}
