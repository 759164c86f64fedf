package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"txdash/internal/core"
	"txdash/internal/ports"
	"txdash/internal/storage/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store {
		return New(nil)
	})
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No file -> empty store
	s := NewFromFiles(dir)
	if n, _ := s.Count(context.Background()); n != 0 {
		t.Fatalf("expected empty store when seed file missing, got %d", n)
	}

	data, err := json.Marshal(storetest.Scenario())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SeedFile), data, 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir)
	stats, err := s.Statistics(context.Background(), 3)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalSales != 200 {
		t.Fatalf("expected seeded data, got %+v", stats)
	}
}

func TestNewFromFilesIgnoresGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if n, _ := NewFromFiles(dir).Count(context.Background()); n != 0 {
		t.Fatalf("expected empty store for undecodable seed, got %d", n)
	}
}

func TestReplaceAllRejectsDuplicateIDs(t *testing.T) {
	s := New(storetest.Scenario())
	_, err := s.ReplaceAll(context.Background(), []core.Transaction{
		{ID: 5, DateOfSale: storetest.Date(2022, 1, 1)},
		{ID: 5, DateOfSale: storetest.Date(2022, 1, 1)},
	})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if n, _ := s.Count(context.Background()); n != 3 {
		t.Fatalf("failed replace must keep previous records, got %d", n)
	}
}

func TestReplaceAllCopiesInput(t *testing.T) {
	in := storetest.Scenario()
	s := New(nil)
	if _, err := s.ReplaceAll(context.Background(), in); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	in[0].Title = "mutated"
	page, _ := s.ListTransactions(context.Background(), core.ListQuery{})
	if page.Items[0].Title == "mutated" {
		t.Fatalf("store must not alias the caller's slice")
	}
}
