package preflight

import (
	"kiritan/internal/config"
	"kiritan/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Run executes every readiness check for cfg: corpus root, data directory
// and each configured recipe tool.
func Run(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if cfg.Corpus.Root == "" {
		results = append(results, Result{
			Name:   "Corpus root",
			Detail: config.CorpusEnvVar + " is not set",
		})
	} else {
		results = append(results, CheckDirectoryReadable("Corpus root", cfg.Corpus.Root))
		results = append(results, CheckDirectoryReadable("Corpus audio", cfg.SplitInput()))
	}
	results = append(results, CheckDirectoryCreatable("Data directory", cfg.Paths.DataDir))

	for _, status := range deps.CheckBinaries(deps.ToolRequirements(cfg)) {
		detail := status.Detail
		if status.Available {
			detail = status.Command
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
