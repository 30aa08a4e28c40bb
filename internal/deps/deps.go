package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"kiritan/internal/config"
	"kiritan/internal/toolexec"
)

// Requirement defines an external dependency the recipe relies on.
type Requirement struct {
	Name        string
	Command     string
	Script      string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		if script := strings.TrimSpace(req.Script); script != "" {
			if info, err := os.Stat(script); err != nil || info.IsDir() {
				status.Detail = fmt.Sprintf("script %q not found", script)
				results = append(results, status)
				continue
			}
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ToolRequirements lists the external recipe programs configured in cfg.
func ToolRequirements(cfg *config.Config) []Requirement {
	dir := cfg.Paths.RecipeDir
	return []Requirement{
		CommandRequirement(dir, "Splitter", "Stage 1: split corpus into train/dev/eval1", cfg.Tools.SplitCommand),
		CommandRequirement(dir, "Data prep", "Stage 2: generate data directories", cfg.Tools.DataPrepCommand),
		CommandRequirement(dir, "Segmenter", "Stage 3: prepare segments, label, text", cfg.Tools.SegmentsCommand),
	}
}

// CommandRequirement builds the requirement for a single argv prefix.
// Relative program paths resolve against dir. When the second argv element
// looks like a script path it must exist as well.
func CommandRequirement(dir, name, description string, argv []string) Requirement {
	req := Requirement{Name: name, Description: description}
	if len(argv) == 0 {
		return req
	}
	req.Command = toolexec.ResolveBinary(dir, argv[0])
	if len(argv) > 1 && isScriptPath(argv[1]) {
		req.Script = argv[1]
		if !filepath.IsAbs(req.Script) {
			req.Script = filepath.Join(dir, req.Script)
		}
	}
	return req
}

func isScriptPath(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".py", ".sh", ".pl":
		return true
	default:
		return false
	}
}
