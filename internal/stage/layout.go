package stage

import "path/filepath"

// Partition is one of the fixed dataset subsets.
type Partition struct {
	Name string
	// Alias is the recipe variable the partition is known by downstream
	// (train_set=tr_no_dev).
	Alias string
}

// Partitions lists the dataset subsets in processing order.
var Partitions = []Partition{
	{Name: "train", Alias: "tr_no_dev"},
	{Name: "dev", Alias: "dev"},
	{Name: "eval1", Alias: "eval1"},
}

// Layout maps partitions onto the fixed directory structure under DataDir.
type Layout struct {
	DataDir string
}

// LocalDir is where the splitter writes raw per-partition directories.
func (l Layout) LocalDir() string {
	return filepath.Join(l.DataDir, "local")
}

// RawDir returns data/local/<partition>_raw.
func (l Layout) RawDir(p Partition) string {
	return filepath.Join(l.LocalDir(), p.Name+"_raw")
}

// PartitionDir returns data/<partition>.
func (l Layout) PartitionDir(p Partition) string {
	return filepath.Join(l.DataDir, p.Name)
}

// LockPath is the file guarding a data directory against concurrent runs.
func (l Layout) LockPath() string {
	return filepath.Join(l.DataDir, ".kiritan.lock")
}
