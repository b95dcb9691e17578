package core

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestHotAddressTableSeedFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.txt")
	data := "AAA\nBBB\n\nCCC\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	table := NewHotAddressTable()
	n, err := table.SeedFromFile(path)
	if err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 addresses loaded, got %d", n)
	}
	if table.Len() != 3 {
		t.Fatalf("expected table length 3, got %d", table.Len())
	}
	for _, addr := range []string{"AAA", "BBB", "CCC"} {
		if !table.Contains(HashAddress(addr)) {
			t.Fatalf("expected table to contain %s", addr)
		}
	}
}

func TestHotAddressTableAddPool(t *testing.T) {
	table := NewHotAddressTable()
	table.AddPool("BASE", "QUOTE")

	if !table.Contains(HashAddress("BASE")) {
		t.Fatalf("expected base vault to be present")
	}
	if !table.Contains(HashAddress("QUOTE")) {
		t.Fatalf("expected quote vault to be present")
	}
	got, ok := table.Lookup(HashAddress("BASE"))
	if !ok || got != "BASE" {
		t.Fatalf("expected canonical lookup of BASE, got %q ok=%v", got, ok)
	}
}

func TestHotAddressTableMissingFile(t *testing.T) {
	table := NewHotAddressTable()
	if _, err := table.SeedFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

// TestHotAddressTableConcurrentGrowth exercises invariant 9: adding
// pool entries concurrently with reads never races or panics.
func TestHotAddressTableConcurrentGrowth(t *testing.T) {
	table := NewHotAddressTable()
	table.AddPool("SEED_BASE", "SEED_QUOTE")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			table.AddPool("B", "Q")
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			table.Contains(HashAddress("SEED_BASE"))
			if addr, ok := table.Lookup(HashAddress("SEED_BASE")); ok && addr != "SEED_BASE" {
				t.Errorf("canonical view dangled: got %q", addr)
			}
		}
	}()

	wg.Wait()
}
