// Package datadir manipulates toolkit-style data directories: flat text files
// keyed by utterance (utt2spk, text, segments, label, ...), by recording
// (wav.scp), or by speaker (spk2utt).
//
// It covers the pieces of the recipe that are plain text plumbing: promoting
// the .tmp outputs of the segmentation script, synthesizing utt2spk for a
// single-speaker corpus, inverting it into spk2utt, and the consistency pass
// that keeps every file restricted to the same sorted key set.
package datadir
