package lstore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lstorego/lstore/internal/index"
)

// TableOptions are a table's creation-time tunables (spec.md §6.3): page
// geometry, tail policy, per-column index kind, B+-tree degree, buffer
// pool size, and the update count that triggers a merge.
type TableOptions struct {
	D              int
	KeyCol         int
	Cumulative     bool
	PageSize       int
	RecordSize     int
	IndexKinds     []index.Kind
	BPlusMaxDegree int
	BufferCapacity int
	MergeThreshold int
	Clock          func() int64
}

// persistedConfig is TableOptions in a YAML-friendly shape, minus Clock
// (a closure can't be serialized; a reopened table's clock is supplied
// fresh by the Database at load time).
type persistedConfig struct {
	D              int      `yaml:"d"`
	KeyCol         int      `yaml:"key_col"`
	Cumulative     bool     `yaml:"cumulative_tails"`
	PageSize       int      `yaml:"page_size"`
	RecordSize     int      `yaml:"record_size"`
	IndexKinds     []string `yaml:"index_kinds"`
	BPlusMaxDegree int      `yaml:"bplus_max_degree"`
	BufferCapacity int      `yaml:"buffer_pool_size"`
	MergeThreshold int      `yaml:"merge_threshold"`
}

func toPersisted(opts TableOptions) persistedConfig {
	kinds := make([]string, len(opts.IndexKinds))
	for i, k := range opts.IndexKinds {
		kinds[i] = k.String()
	}
	return persistedConfig{
		D:              opts.D,
		KeyCol:         opts.KeyCol,
		Cumulative:     opts.Cumulative,
		PageSize:       opts.PageSize,
		RecordSize:     opts.RecordSize,
		IndexKinds:     kinds,
		BPlusMaxDegree: opts.BPlusMaxDegree,
		BufferCapacity: opts.BufferCapacity,
		MergeThreshold: opts.MergeThreshold,
	}
}

func parseKind(s string) (index.Kind, error) {
	switch s {
	case "btree":
		return index.KindBTree, nil
	case "hash":
		return index.KindHash, nil
	case "linear":
		return index.KindLinear, nil
	default:
		return 0, fmt.Errorf("lstore: unknown index kind %q", s)
	}
}

func (p persistedConfig) toOptions() (TableOptions, error) {
	kinds := make([]index.Kind, len(p.IndexKinds))
	for i, s := range p.IndexKinds {
		k, err := parseKind(s)
		if err != nil {
			return TableOptions{}, err
		}
		kinds[i] = k
	}
	return TableOptions{
		D:              p.D,
		KeyCol:         p.KeyCol,
		Cumulative:     p.Cumulative,
		PageSize:       p.PageSize,
		RecordSize:     p.RecordSize,
		IndexKinds:     kinds,
		BPlusMaxDegree: p.BPlusMaxDegree,
		BufferCapacity: p.BufferCapacity,
		MergeThreshold: p.MergeThreshold,
	}, nil
}

const tableInfoFile = "__table_info__.bin"
const tableConfigFile = "__table_config__.yaml"

// writeTableInfo writes the canonical 2-byte (D, key_col) metadata file
// spec.md §6.2 describes. D and key_col must each fit in a byte.
func writeTableInfo(tableDir string, d, keyCol int) error {
	if d < 0 || d > 255 || keyCol < 0 || keyCol > 255 {
		return fmt.Errorf("lstore: D=%d key_col=%d must fit in one byte each", d, keyCol)
	}
	return os.WriteFile(filepath.Join(tableDir, tableInfoFile), []byte{byte(d), byte(keyCol)}, 0644)
}

func readTableInfo(tableDir string) (d, keyCol int, err error) {
	b, err := os.ReadFile(filepath.Join(tableDir, tableInfoFile))
	if err != nil {
		return 0, 0, err
	}
	if len(b) != 2 {
		return 0, 0, fmt.Errorf("lstore: %s has %d bytes, want 2", tableInfoFile, len(b))
	}
	return int(b[0]), int(b[1]), nil
}

func writeTableConfig(tableDir string, opts TableOptions) error {
	b, err := yaml.Marshal(toPersisted(opts))
	if err != nil {
		return fmt.Errorf("lstore: marshal table config: %w", err)
	}
	return os.WriteFile(filepath.Join(tableDir, tableConfigFile), b, 0644)
}

func readTableConfig(tableDir string) (TableOptions, error) {
	b, err := os.ReadFile(filepath.Join(tableDir, tableConfigFile))
	if err != nil {
		return TableOptions{}, fmt.Errorf("lstore: read table config: %w", err)
	}
	var p persistedConfig
	if err := yaml.Unmarshal(b, &p); err != nil {
		return TableOptions{}, fmt.Errorf("lstore: parse table config: %w", err)
	}
	return p.toOptions()
}

// dbConfig is the database-level sidecar: little more than a name today,
// but gives the on-disk layout a place to grow shared, database-wide
// tunables without touching every table's own config file.
type dbConfig struct {
	Name string `yaml:"name"`
}

const dbConfigFile = "__db_config__.yaml"

func writeDBConfig(dbDir, name string) error {
	b, err := yaml.Marshal(dbConfig{Name: name})
	if err != nil {
		return fmt.Errorf("lstore: marshal db config: %w", err)
	}
	return os.WriteFile(filepath.Join(dbDir, dbConfigFile), b, 0644)
}
