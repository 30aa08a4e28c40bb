package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"kiritan/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// CorpusEnvVar names the environment variable holding the corpus root.
const CorpusEnvVar = "KIRITAN"

// Paths contains directory configuration.
type Paths struct {
	RecipeDir string `toml:"recipe_dir"`
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	EnvFile   string `toml:"env_file"`
}

// Corpus locates the downloaded KIRITAN corpus.
type Corpus struct {
	Root        string `toml:"root"`
	AudioSubdir string `toml:"audio_subdir"`
}

// Tools contains the argv prefixes of the external recipe programs.
type Tools struct {
	SplitCommand    []string `toml:"split_command"`
	DataPrepCommand []string `toml:"data_prep_command"`
	SegmentsCommand []string `toml:"segments_command"`
}

// Prep contains the parameters handed to the external recipe programs.
type Prep struct {
	DevRatio      float64  `toml:"dev_ratio"`
	EvalRatio     float64  `toml:"eval_ratio"`
	SampleRate    int      `toml:"sample_rate"`
	SilencePhones []string `toml:"silence_phones"`
	MaxSegmentMS  int      `toml:"max_segment_ms"`
	SpeakerID     string   `toml:"speaker_id"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Driver  string `toml:"driver"`
	DSN     string `toml:"dsn"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Source bool   `toml:"source"`
}

// Config encapsulates all configuration values for the runner.
//
// Configuration sections:
//   - Paths: recipe working directory, data layout root, logs, env file
//   - Corpus: location of the downloaded audio (KIRITAN)
//   - Tools: external split, data prep, and segmentation programs
//   - Prep: ratios, sample rate, silence phones, segment bound, speaker
//   - History: run history database
//   - Logging: log format, level, and source annotation
type Config struct {
	Paths   Paths   `toml:"paths"`
	Corpus  Corpus  `toml:"corpus"`
	Tools   Tools   `toml:"tools"`
	Prep    Prep    `toml:"prep"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`

	envFileOverride string
}

// Option adjusts how Load resolves configuration.
type Option func(*Config)

// WithEnvFile replaces paths.env_file for this load.
func WithEnvFile(path string) Option {
	return func(c *Config) {
		c.envFileOverride = strings.TrimSpace(path)
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/kiritan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The corpus root is not required here; callers
// that run stages check it with RequireCorpus.
func Load(path string, opts ...Option) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.envFileOverride != "" {
		cfg.Paths.EnvFile = cfg.envFileOverride
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kiritan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// RequireCorpus reports a configuration error when no corpus root is known.
func (c *Config) RequireCorpus() error {
	if strings.TrimSpace(c.Corpus.Root) != "" {
		return nil
	}
	hint := fmt.Sprintf("export %s=<corpus root>, add it to %s, or set corpus.root", CorpusEnvVar, c.Paths.EnvFile)
	return services.Wrap(services.ErrConfiguration, "config", "corpus",
		fmt.Sprintf("%s is not set (%s)", CorpusEnvVar, hint), nil)
}

// SplitInput returns the directory handed to the splitter.
func (c *Config) SplitInput() string {
	if strings.TrimSpace(c.Corpus.AudioSubdir) == "" {
		return c.Corpus.Root
	}
	return filepath.Join(c.Corpus.Root, c.Corpus.AudioSubdir)
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
