// Package prep implements the numbered data-preparation stages.
//
// Stage 0 only reminds the operator where the corpus comes from. Stage 1
// splits the corpus into partitions, stage 2 builds per-partition data
// directories and stage 3 segments them and derives the speaker maps.
// Stages 2 and 3 loop over every partition before returning, so a stage is
// complete for the whole dataset before the next one starts.
package prep
