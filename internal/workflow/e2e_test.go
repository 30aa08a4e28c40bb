package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"kiritan/internal/config"
	"kiritan/internal/datadir"
	"kiritan/internal/stage"
	"kiritan/internal/testsupport"
)

type recordingExecutor struct {
	binaries []string
	action   func(binary string, args []string) error
}

func (r *recordingExecutor) Run(_ context.Context, _ string, binary string, args []string, onLine func(string)) error {
	r.binaries = append(r.binaries, binary)
	if onLine != nil {
		onLine("processing " + binary)
	}
	if r.action != nil {
		return r.action(binary, args)
	}
	return nil
}

func TestRunSplitOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithToolNames("split", "dataprep", "segmenter"))

	exec := &recordingExecutor{action: func(_ string, args []string) error {
		for _, p := range stage.Partitions {
			if err := os.MkdirAll(filepath.Join(args[1], p.Name+"_raw"), 0o755); err != nil {
				return err
			}
		}
		return nil
	}}

	result, err := Run(context.Background(), stage.Range{Start: 1, Stop: 1}, Options{Config: cfg, Executor: exec})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !equalInts(result.Executed, []int{1}) {
		t.Fatalf("expected only stage 1, got %v", result.Executed)
	}
	if len(exec.binaries) != 1 || exec.binaries[0] != "split" {
		t.Fatalf("expected only the splitter to be invoked, got %v", exec.binaries)
	}
	layout := stage.Layout{DataDir: cfg.Paths.DataDir}
	for _, p := range stage.Partitions {
		if _, err := os.Stat(layout.RawDir(p)); err != nil {
			t.Fatalf("expected %s: %v", layout.RawDir(p), err)
		}
		if _, err := os.Stat(layout.PartitionDir(p)); !os.IsNotExist(err) {
			t.Fatalf("expected %s not to be created by stage 1", layout.PartitionDir(p))
		}
	}
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithToolNames("split", "dataprep", "segmenter"))

	exec := &recordingExecutor{action: func(binary string, args []string) error {
		switch binary {
		case "split":
			for _, p := range stage.Partitions {
				if err := os.MkdirAll(filepath.Join(args[1], p.Name+"_raw"), 0o755); err != nil {
					return err
				}
			}
		case "dataprep":
			return os.WriteFile(filepath.Join(args[1], "wav.scp"), []byte("s1 /c/s1.wav\ns2 /c/s2.wav\n"), 0o644)
		case "segmenter":
			dir := args[len(args)-2]
			lines := "s2_0001 s2 0.0 1.0\ns1_0001 s1 0.0 1.0\ns1_0002 s1 1.0 2.0\n"
			if err := os.WriteFile(filepath.Join(dir, "segments.tmp"), []byte(lines), 0o644); err != nil {
				return err
			}
			labels := "s1_0001 a\ns1_0002 b\ns2_0001 c\n"
			if err := os.WriteFile(filepath.Join(dir, "label.tmp"), []byte(labels), 0o644); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "text.tmp"), []byte(labels), 0o644)
		}
		return nil
	}}

	result, err := Run(context.Background(), stage.DefaultRange(), Options{Config: cfg, Executor: exec})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !equalInts(result.Executed, []int{1, 2, 3}) || !equalInts(result.Skipped, []int{0}) {
		t.Fatalf("unexpected result %+v", result)
	}
	// Every stage finishes all partitions before the next one begins.
	want := []string{"split", "dataprep", "dataprep", "dataprep", "segmenter", "segmenter", "segmenter"}
	if len(exec.binaries) != len(want) {
		t.Fatalf("unexpected invocations %v", exec.binaries)
	}
	for i := range want {
		if exec.binaries[i] != want[i] {
			t.Fatalf("invocation %d = %s, want %s (%v)", i, exec.binaries[i], want[i], exec.binaries)
		}
	}

	layout := stage.Layout{DataDir: cfg.Paths.DataDir}
	for _, p := range stage.Partitions {
		dir := layout.PartitionDir(p)
		utts, err := datadir.ReadKeys(filepath.Join(dir, datadir.Utt2Spk))
		if err != nil {
			t.Fatalf("read utt2spk: %v", err)
		}
		segs, err := datadir.ReadKeys(filepath.Join(dir, datadir.Segments))
		if err != nil {
			t.Fatalf("read segments: %v", err)
		}
		if len(utts) != 3 || len(segs) != 3 {
			t.Fatalf("expected 3 utterances in %s, got utt2spk=%v segments=%v", dir, utts, segs)
		}
		for i := range utts {
			if utts[i] != segs[i] {
				t.Fatalf("utt2spk and segments keys differ: %v vs %v", utts, segs)
			}
		}
		spk, err := os.ReadFile(filepath.Join(dir, datadir.Spk2Utt))
		if err != nil {
			t.Fatalf("read spk2utt: %v", err)
		}
		if string(spk) != "kiritan s1_0001 s1_0002 s2_0001\n" {
			t.Fatalf("unexpected spk2utt %q", spk)
		}
	}
}

func TestRunWithStubScripts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubScripts(
		`mkdir -p "$2/train_raw" "$2/dev_raw" "$2/eval1_raw"`,
		`test "$3" = 48000 || exit 9
echo "song01 $1/song01.wav" > "$2/wav.scp"`,
		"exit 1",
	))

	result, err := Run(context.Background(), stage.Range{Start: 1, Stop: 2}, Options{Config: cfg})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !equalInts(result.Executed, []int{1, 2}) {
		t.Fatalf("unexpected executed stages %v", result.Executed)
	}
	layout := stage.Layout{DataDir: cfg.Paths.DataDir}
	for _, p := range stage.Partitions {
		got := testsupport.ReadFile(t, filepath.Join(layout.PartitionDir(p), datadir.WavScp))
		want := "song01 " + layout.RawDir(p) + "/song01.wav\n"
		if got != want {
			t.Fatalf("unexpected wav.scp for %s: %q", p.Name, got)
		}
	}
}

// snapshotDir reads every regular file directly under dir.
func snapshotDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files[entry.Name()] = testsupport.ReadFile(t, filepath.Join(dir, entry.Name()))
	}
	return files
}

func sameFiles(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for name, content := range a {
		if other, ok := b[name]; !ok || other != content {
			return false
		}
	}
	return true
}

func rerunConfig(t *testing.T) *config.Config {
	return testsupport.NewConfig(t, testsupport.WithStubScripts(
		`for p in train dev eval1; do
  mkdir -p "$2/${p}_raw"
  : > "$2/${p}_raw/song02.wav"
  : > "$2/${p}_raw/song01.wav"
done`,
		`for f in "$1"/*.wav; do echo "$(basename "$f" .wav) $f"; done > "$2/wav.scp"
echo "$3" > "$2/rate"`,
		`for a; do dir=$prev; prev=$a; done
printf 'song01_0001 song01 0.0 1.0\nsong01_0002 song01 1.0 2.0\nsong02_0001 song02 0.0 1.5\n' > "$dir/segments.tmp"
printf 'song01_0001 a\nsong01_0002 b\nsong02_0001 c\n' > "$dir/label.tmp"
printf 'song01_0001 a\nsong01_0002 b\nsong02_0001 c\n' > "$dir/text.tmp"`,
	))
}

func TestRerunDataDirStageIsDeterministic(t *testing.T) {
	cfg := rerunConfig(t)
	layout := stage.Layout{DataDir: cfg.Paths.DataDir}

	if _, err := Run(context.Background(), stage.Range{Start: 1, Stop: 2}, Options{Config: cfg}); err != nil {
		t.Fatalf("initial run: %v", err)
	}
	first := make(map[string]map[string]string)
	for _, p := range stage.Partitions {
		first[p.Name] = snapshotDir(t, layout.PartitionDir(p))
		if first[p.Name][datadir.WavScp] == "" {
			t.Fatalf("expected wav.scp for %s", p.Name)
		}
	}

	for i := 0; i < 2; i++ {
		result, err := Run(context.Background(), stage.Range{Start: 2, Stop: 2}, Options{Config: cfg})
		if err != nil {
			t.Fatalf("rerun %d: %v", i, err)
		}
		if !equalInts(result.Executed, []int{2}) {
			t.Fatalf("rerun %d executed %v", i, result.Executed)
		}
		for _, p := range stage.Partitions {
			if got := snapshotDir(t, layout.PartitionDir(p)); !sameFiles(got, first[p.Name]) {
				t.Fatalf("rerun %d changed %s:\nbefore %v\nafter  %v", i, p.Name, first[p.Name], got)
			}
		}
	}
}

func TestRerunSegmentsStageRebuildsMappings(t *testing.T) {
	cfg := rerunConfig(t)
	layout := stage.Layout{DataDir: cfg.Paths.DataDir}

	if _, err := Run(context.Background(), stage.Range{Start: 1, Stop: 3}, Options{Config: cfg}); err != nil {
		t.Fatalf("initial run: %v", err)
	}
	first := make(map[string]map[string]string)
	for _, p := range stage.Partitions {
		first[p.Name] = snapshotDir(t, layout.PartitionDir(p))
	}

	if _, err := Run(context.Background(), stage.Range{Start: 3, Stop: 3}, Options{Config: cfg}); err != nil {
		t.Fatalf("rerun stage 3: %v", err)
	}
	for _, p := range stage.Partitions {
		dir := layout.PartitionDir(p)
		got := snapshotDir(t, dir)
		if !sameFiles(got, first[p.Name]) {
			t.Fatalf("stage 3 rerun changed %s:\nbefore %v\nafter  %v", p.Name, first[p.Name], got)
		}
		for _, name := range []string{"segments.tmp", "label.tmp", "text.tmp"} {
			if _, ok := got[name]; ok {
				t.Fatalf("temp file %s left in %s", name, dir)
			}
		}
		if got[datadir.Utt2Spk] != "song01_0001 kiritan\nsong01_0002 kiritan\nsong02_0001 kiritan\n" {
			t.Fatalf("unexpected utt2spk %q", got[datadir.Utt2Spk])
		}
		if got[datadir.Spk2Utt] != "kiritan song01_0001 song01_0002 song02_0001\n" {
			t.Fatalf("unexpected spk2utt %q", got[datadir.Spk2Utt])
		}
		if _, err := os.Stat(filepath.Join(dir, datadir.BackupDir, datadir.Segments)); err != nil {
			t.Fatalf("expected backup of segments: %v", err)
		}
	}
}
