package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.loadEnvFile(); err != nil {
		return err
	}
	if err := c.normalizeCorpus(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizePrep()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RecipeDir) == "" {
		c.Paths.RecipeDir = defaultRecipeDir
	}
	if c.Paths.RecipeDir, err = expandPath(c.Paths.RecipeDir); err != nil {
		return fmt.Errorf("paths.recipe_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = c.expandRecipePath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = c.expandRecipePath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.EnvFile) != "" {
		if c.Paths.EnvFile, err = c.expandRecipePath(c.Paths.EnvFile); err != nil {
			return fmt.Errorf("paths.env_file: %w", err)
		}
	}
	return nil
}

// expandRecipePath resolves relative paths against the recipe directory so the
// data layout matches what the external scripts see from their working dir.
func (c *Config) expandRecipePath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value != "" && !filepath.IsAbs(value) && !strings.HasPrefix(value, "~") {
		value = filepath.Join(c.Paths.RecipeDir, value)
	}
	return expandPath(value)
}

func (c *Config) loadEnvFile() error {
	if c.Paths.EnvFile == "" {
		return nil
	}
	info, err := os.Stat(c.Paths.EnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("paths.env_file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("paths.env_file: %s is a directory", c.Paths.EnvFile)
	}
	// Existing environment variables win over the file.
	if err := godotenv.Load(c.Paths.EnvFile); err != nil {
		return fmt.Errorf("load env file %s: %w", c.Paths.EnvFile, err)
	}
	return nil
}

func (c *Config) normalizeCorpus() error {
	c.Corpus.Root = strings.TrimSpace(c.Corpus.Root)
	if c.Corpus.Root == "" {
		if value, ok := os.LookupEnv(CorpusEnvVar); ok {
			c.Corpus.Root = strings.TrimSpace(value)
		}
	}
	if c.Corpus.Root != "" {
		var err error
		if c.Corpus.Root, err = expandPath(c.Corpus.Root); err != nil {
			return fmt.Errorf("corpus.root: %w", err)
		}
	}
	c.Corpus.AudioSubdir = strings.Trim(strings.TrimSpace(c.Corpus.AudioSubdir), "/")
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.SplitCommand = trimArgv(c.Tools.SplitCommand)
	c.Tools.DataPrepCommand = trimArgv(c.Tools.DataPrepCommand)
	c.Tools.SegmentsCommand = trimArgv(c.Tools.SegmentsCommand)
}

func trimArgv(argv []string) []string {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		if arg = strings.TrimSpace(arg); arg != "" {
			out = append(out, arg)
		}
	}
	return out
}

func (c *Config) normalizePrep() {
	phones := make([]string, 0, len(c.Prep.SilencePhones))
	seen := make(map[string]struct{}, len(c.Prep.SilencePhones))
	for _, phone := range c.Prep.SilencePhones {
		phone = strings.TrimSpace(phone)
		if phone == "" {
			continue
		}
		if _, ok := seen[phone]; ok {
			continue
		}
		seen[phone] = struct{}{}
		phones = append(phones, phone)
	}
	c.Prep.SilencePhones = phones
	c.Prep.SpeakerID = strings.TrimSpace(c.Prep.SpeakerID)
}

func (c *Config) normalizeHistory() error {
	c.History.Driver = strings.ToLower(strings.TrimSpace(c.History.Driver))
	if c.History.Driver == "" {
		c.History.Driver = defaultHistoryDriver
	}
	c.History.DSN = strings.TrimSpace(c.History.DSN)
	if c.History.Driver == "sqlite" {
		if c.History.DSN == "" {
			c.History.DSN = filepath.Join(c.Paths.LogDir, defaultHistoryFile)
			return nil
		}
		var err error
		if c.History.DSN, err = c.expandRecipePath(c.History.DSN); err != nil {
			return fmt.Errorf("history.dsn: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
