package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validatePrep(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTools() error {
	for key, argv := range map[string][]string{
		"tools.split_command":     c.Tools.SplitCommand,
		"tools.data_prep_command": c.Tools.DataPrepCommand,
		"tools.segments_command":  c.Tools.SegmentsCommand,
	} {
		if len(argv) == 0 {
			return fmt.Errorf("%s must name a program", key)
		}
	}
	return nil
}

func (c *Config) validatePrep() error {
	if c.Prep.DevRatio < 0 || c.Prep.DevRatio >= 1 {
		return errors.New("prep.dev_ratio must be in [0, 1)")
	}
	if c.Prep.EvalRatio < 0 || c.Prep.EvalRatio >= 1 {
		return errors.New("prep.eval_ratio must be in [0, 1)")
	}
	if c.Prep.DevRatio+c.Prep.EvalRatio >= 1 {
		return errors.New("prep.dev_ratio + prep.eval_ratio must leave data for training")
	}
	if err := ensurePositiveMap(map[string]int{
		"prep.sample_rate":    c.Prep.SampleRate,
		"prep.max_segment_ms": c.Prep.MaxSegmentMS,
	}); err != nil {
		return err
	}
	if len(c.Prep.SilencePhones) == 0 {
		return errors.New("prep.silence_phones must list at least one phone")
	}
	if c.Prep.SpeakerID == "" {
		return errors.New("prep.speaker_id must be set")
	}
	if strings.ContainsAny(c.Prep.SpeakerID, " \t") {
		return errors.New("prep.speaker_id must not contain whitespace")
	}
	return nil
}

func (c *Config) validateHistory() error {
	switch c.History.Driver {
	case "sqlite":
	case "mysql":
		if c.History.Enabled && c.History.DSN == "" {
			return errors.New("history.dsn must be set when history.driver is mysql")
		}
	default:
		return fmt.Errorf("history.driver: unsupported value %q (use sqlite or mysql)", c.History.Driver)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
