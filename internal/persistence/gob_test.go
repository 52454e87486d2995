package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type snapshot struct {
	Balances map[string]int
	Version  int
}

func TestSaveAndLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.gob")
	want := snapshot{Balances: map[string]int{"u1": 10, "u2": 0}, Version: 3}

	if err := SaveGob(path, want); err != nil {
		t.Fatalf("SaveGob() error = %v", err)
	}

	var got snapshot
	if err := LoadGob(path, &got); err != nil {
		t.Fatalf("LoadGob() error = %v", err)
	}
	if got.Version != want.Version || got.Balances["u1"] != 10 || len(got.Balances) != 2 {
		t.Errorf("LoadGob() = %+v, want %+v", got, want)
	}
}

func TestSaveGob_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.gob")

	if err := SaveGob(path, snapshot{Version: 1}); err != nil {
		t.Fatalf("first SaveGob() error = %v", err)
	}
	if err := SaveGob(path, snapshot{Version: 2}); err != nil {
		t.Fatalf("second SaveGob() error = %v", err)
	}

	var got snapshot
	if err := LoadGob(path, &got); err != nil {
		t.Fatalf("LoadGob() error = %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Expected the second snapshot, got version %d", got.Version)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestLoadGob_Missing(t *testing.T) {
	var got snapshot
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &got)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadGob_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gob")
	if err := os.WriteFile(path, []byte("not a gob stream"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var got snapshot
	err := LoadGob(path, &got)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a decode error, got %v", err)
	}
}
