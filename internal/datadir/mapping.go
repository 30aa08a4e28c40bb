package datadir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"kiritan/internal/fileutil"
	"kiritan/internal/services"
)

// File names inside a data directory.
const (
	Segments = "segments"
	Label    = "label"
	Text     = "text"
	Utt2Spk  = "utt2spk"
	Spk2Utt  = "spk2utt"
	WavScp   = "wav.scp"
	FeatsScp = "feats.scp"
)

// TempSuffix marks the outputs of the segmentation script before promotion.
const TempSuffix = ".tmp"

// PromoteTemp renames <name>.tmp to <name> for every name inside dir.
func PromoteTemp(dir string, names ...string) error {
	for _, name := range names {
		src := filepath.Join(dir, name+TempSuffix)
		dst := filepath.Join(dir, name)
		if err := os.Rename(src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return services.Wrap(services.ErrNotFound, "promote", name,
					fmt.Sprintf("%s was not produced", src), err)
			}
			return fmt.Errorf("rename %s: %w", src, err)
		}
	}
	return nil
}

// WriteUtt2Spk maps every utterance listed in dir/segments to speaker and
// writes dir/utt2spk. It returns the number of utterances written.
func WriteUtt2Spk(dir, speaker string) (int, error) {
	speaker = strings.TrimSpace(speaker)
	if speaker == "" || strings.ContainsAny(speaker, " \t") {
		return 0, services.Wrap(services.ErrConfiguration, "utt2spk", "speaker", fmt.Sprintf("invalid speaker id %q", speaker), nil)
	}
	keys, err := ReadKeys(filepath.Join(dir, Segments))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "utt2spk", Segments, "segments file missing", err)
		}
		return 0, err
	}
	err = fileutil.WriteFileAtomic(filepath.Join(dir, Utt2Spk), func(w io.Writer) error {
		for _, key := range keys {
			if _, err := fmt.Fprintf(w, "%s %s\n", key, speaker); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Utt2SpkToSpk2Utt inverts an utt2spk stream. Speakers appear in order of
// first occurrence and keep their utterances in input order.
func Utt2SpkToSpk2Utt(r io.Reader, w io.Writer) error {
	var speakers []string
	utts := make(map[string][]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return services.Wrap(services.ErrValidation, "spk2utt", "parse",
				fmt.Sprintf("line %d: expected \"<utt> <spk>\", got %d fields", lineNo, len(fields)), nil)
		}
		utt, spk := fields[0], fields[1]
		if _, ok := utts[spk]; !ok {
			speakers = append(speakers, spk)
		}
		utts[spk] = append(utts[spk], utt)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, spk := range speakers {
		if _, err := fmt.Fprintf(w, "%s %s\n", spk, strings.Join(utts[spk], " ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteSpk2Utt derives dir/spk2utt from dir/utt2spk.
func WriteSpk2Utt(dir string) error {
	src := filepath.Join(dir, Utt2Spk)
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "spk2utt", Utt2Spk, "utt2spk file missing", err)
		}
		return err
	}
	defer in.Close()

	return fileutil.WriteFileAtomic(filepath.Join(dir, Spk2Utt), func(w io.Writer) error {
		return Utt2SpkToSpk2Utt(in, w)
	})
}
