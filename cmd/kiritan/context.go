package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"kiritan/internal/config"
	"kiritan/internal/logging"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	logClose   func() error
	loggerErr  error
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) loadOptions() []config.Option {
	if c.envFileFlag == nil || strings.TrimSpace(*c.envFileFlag) == "" {
		return nil
	}
	return []config.Option{config.WithEnvFile(strings.TrimSpace(*c.envFileFlag))}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath(), c.loadOptions()...)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the logger writing to console and the log file. The log
// directory is created on first use.
func (c *commandContext) ensureLogger(console io.Writer) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.logClose, c.loggerErr = logging.NewFromConfig(cfg, console)
	})
	return c.logger, c.loggerErr
}

// closeLogger releases the log file opened by ensureLogger.
func (c *commandContext) closeLogger() {
	if c.logClose != nil {
		_ = c.logClose()
		c.logClose = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
