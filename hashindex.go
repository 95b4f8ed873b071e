package lstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lstorego/lstore/internal/engine"
	"github.com/lstorego/lstore/internal/rid"
)

// hashIndexDir returns the per-column index directory spec.md §6.2 lays
// out: <table_dir>/index/col<N>/.
func hashIndexDir(tableDir string, col int) string {
	return filepath.Join(tableDir, "index", fmt.Sprintf("col%d", col))
}

const (
	hashForwardFile = "hashmap_index.json"
	hashReverseFile = "hashmap_reverse.json"
)

// persistHashIndexes snapshots every hash-kind column of tb to its forward
// and reverse JSON files, so a later Open can restore it directly instead
// of rebuilding it by scanning every record.
func persistHashIndexes(tableDir string, tb *engine.Table) error {
	for col := 0; col < tb.D(); col++ {
		snap, ok := tb.HashSnapshot(col)
		if !ok {
			continue
		}
		dir := hashIndexDir(tableDir, col)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		fwd, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal forward map: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, hashForwardFile), fwd, 0644); err != nil {
			return err
		}

		reverse := make(map[rid.RID]int64)
		for value, rids := range snap {
			for _, r := range rids {
				reverse[r] = value
			}
		}
		rev, err := json.Marshal(reverse)
		if err != nil {
			return fmt.Errorf("marshal reverse map: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, hashReverseFile), rev, 0644); err != nil {
			return err
		}
	}
	return nil
}

// readHashSnapshot loads column col's persisted forward map, if present.
// Returns a nil map with no error if the column has never been persisted
// (a freshly created table, or one whose index kind changed).
func readHashSnapshot(tableDir string, col int) (map[int64][]rid.RID, error) {
	path := filepath.Join(hashIndexDir(tableDir, col), hashForwardFile)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap map[int64][]rid.RID
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal forward map: %w", err)
	}
	return snap, nil
}
