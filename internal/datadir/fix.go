package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kiritan/internal/fileutil"
	"kiritan/internal/services"
)

// BackupDir is where Fix keeps the pre-fix copy of every file it rewrites.
const BackupDir = ".backup"

var (
	// uttFiles are keyed by utterance and filtered to the common utterance set.
	uttFiles = []string{Text, Segments, FeatsScp, "utt2dur", "utt2num_frames", "utt2lang"}
	// recoFiles are keyed by recording when segments exist.
	recoFiles = []string{WavScp, "reco2file_and_channel", "reco2dur"}
	// spkFiles are keyed by speaker.
	spkFiles = []string{"spk2gender", "cmvn.scp"}
)

// FixOptions configures the consistency pass.
type FixOptions struct {
	// UttExtraFiles are additional utterance-keyed files to keep aligned (e.g. label).
	UttExtraFiles []string
}

// FixReport summarizes what the consistency pass kept and removed.
type FixReport struct {
	Utterances        int
	DroppedUtterances int
	Recordings        int
	DroppedRecordings int
	Speakers          int
}

// Fix restricts every file in dir to the utterances present in all of them,
// sorts them by key, and regenerates spk2utt from the filtered utt2spk.
// Originals are copied to dir/.backup first. Without segments, wav.scp is
// treated as utterance keyed.
func Fix(dir string, opts FixOptions) (FixReport, error) {
	var report FixReport

	utt2spk, ok, err := readTable(filepath.Join(dir, Utt2Spk))
	if err != nil {
		return report, err
	}
	if !ok {
		return report, services.Wrap(services.ErrNotFound, "fix", dir, "utt2spk file missing", nil)
	}

	if err := backup(dir, opts.UttExtraFiles); err != nil {
		return report, err
	}

	segments, hasSegments, err := readTable(filepath.Join(dir, Segments))
	if err != nil {
		return report, err
	}

	perUtt := append(append([]string{}, uttFiles...), opts.UttExtraFiles...)
	perReco := recoFiles
	if !hasSegments {
		perUtt = append(perUtt, WavScp)
		perReco = nil
	}

	recoTables := make(map[string]table)
	var recordings map[string]struct{}
	if hasSegments {
		wav, hasWav, err := readTable(filepath.Join(dir, WavScp))
		if err != nil {
			return report, err
		}
		if hasWav {
			available := wav.keys()
			segments = segments.filter(func(e entry) bool {
				_, ok := available[field(e.line, 1)]
				return ok
			})
			recordings = make(map[string]struct{})
			for _, e := range segments {
				recordings[field(e.line, 1)] = struct{}{}
			}
			report.DroppedRecordings = len(wav) - len(recordings)
			for _, name := range perReco {
				t, present, err := readTable(filepath.Join(dir, name))
				if err != nil {
					return report, err
				}
				if present {
					recoTables[name] = t
				}
			}
		}
	}

	utts := utt2spk.keys()
	uttTables := make(map[string]table)
	for _, name := range perUtt {
		var t table
		var present bool
		if name == Segments {
			t, present = segments, hasSegments
		} else {
			t, present, err = readTable(filepath.Join(dir, name))
			if err != nil {
				return report, err
			}
		}
		if !present {
			continue
		}
		uttTables[name] = t
		utts = intersect(utts, t.keys())
	}

	report.Utterances = len(utts)
	report.DroppedUtterances = len(utt2spk) - len(utts)
	if len(utts) == 0 {
		return report, services.Wrap(services.ErrValidation, "fix", dir,
			"no utterance is present in every file", nil)
	}

	inUtts := func(e entry) bool {
		_, ok := utts[e.key]
		return ok
	}
	filteredUtt2Spk := utt2spk.filter(inUtts)
	if err := filteredUtt2Spk.write(filepath.Join(dir, Utt2Spk)); err != nil {
		return report, err
	}
	for name, t := range uttTables {
		if err := t.filter(inUtts).write(filepath.Join(dir, name)); err != nil {
			return report, err
		}
	}

	if recordings != nil {
		// Recordings whose every segment was dropped go too.
		kept := make(map[string]struct{})
		for _, e := range uttTables[Segments].filter(inUtts) {
			kept[field(e.line, 1)] = struct{}{}
		}
		report.DroppedRecordings += len(recordings) - len(kept)
		report.Recordings = len(kept)
		for name, t := range recoTables {
			filtered := t.filter(func(e entry) bool {
				_, ok := kept[e.key]
				return ok
			})
			if err := filtered.write(filepath.Join(dir, name)); err != nil {
				return report, err
			}
		}
	}

	speakers := make(map[string]struct{})
	for _, e := range filteredUtt2Spk {
		speakers[field(e.line, 1)] = struct{}{}
	}
	report.Speakers = len(speakers)
	for _, name := range spkFiles {
		t, present, err := readTable(filepath.Join(dir, name))
		if err != nil {
			return report, err
		}
		if !present {
			continue
		}
		filtered := t.filter(func(e entry) bool {
			_, ok := speakers[e.key]
			return ok
		})
		if err := filtered.write(filepath.Join(dir, name)); err != nil {
			return report, err
		}
	}

	if err := WriteSpk2Utt(dir); err != nil {
		return report, err
	}
	return report, nil
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, min(len(a), len(b)))
	for key := range a {
		if _, ok := b[key]; ok {
			out[key] = struct{}{}
		}
	}
	return out
}

func backup(dir string, extra []string) error {
	target := filepath.Join(dir, BackupDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	names := []string{Utt2Spk, Spk2Utt}
	names = append(names, uttFiles...)
	names = append(names, recoFiles...)
	names = append(names, spkFiles...)
	names = append(names, extra...)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		src := filepath.Join(dir, name)
		if !fileutil.Exists(src) {
			continue
		}
		if err := fileutil.CopyFile(src, filepath.Join(target, name)); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}
	return nil
}
